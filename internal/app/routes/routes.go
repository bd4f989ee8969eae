package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/coursereg/internal/app/controllers"
	"github.com/yigit/coursereg/internal/middleware"
)

// Controllers groups every controller the router needs
type Controllers struct {
	Auth    *controllers.AuthController
	Student *controllers.StudentController
	Course  *controllers.CourseController
	Admin   *controllers.AdminController
	Health  *controllers.HealthController
}

// SetupRouter configures all application routes. rateLimit guards the credential endpoints.
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware, rateLimit gin.HandlerFunc) {
	if rateLimit == nil {
		rateLimit = func(ctx *gin.Context) { ctx.Next() }
	}

	router.GET("/ping", c.Health.Ping)

	v1 := router.Group("/api/v1")
	v1.GET("/health", c.Health.Health)

	// --- Public auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", rateLimit, c.Auth.Login)
		auth.POST("/admin/login", rateLimit, c.Auth.AdminLogin)
		auth.POST("/register", rateLimit, c.Auth.Register)
	}

	// --- Authenticated routes; role checks happen in the services ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	authenticated.GET("/auth/me", c.Auth.Me)
	authenticated.PUT("/auth/password", c.Auth.ChangePassword)

	students := authenticated.Group("/students")
	{
		students.GET("", c.Student.ListStudents)
		students.POST("", c.Student.CreateStudent)
		students.GET("/:id", c.Student.GetStudent)
		students.PUT("/:id", c.Student.UpdateStudent)
		students.DELETE("/:id", c.Student.DeleteStudent)

		students.GET("/:id/courses", c.Student.GetStudentCourses)
		students.POST("/:id/courses/:courseId", c.Student.Enroll)
		students.DELETE("/:id/courses/:courseId", c.Student.Unenroll)
	}

	courses := authenticated.Group("/courses")
	{
		courses.GET("", c.Course.ListCourses)
		courses.POST("", c.Course.CreateCourse)
		courses.GET("/code/:code", c.Course.GetCourseByCode)
		courses.GET("/:id", c.Course.GetCourse)
		courses.PUT("/:id", c.Course.UpdateCourse)
		courses.DELETE("/:id", c.Course.DeleteCourse)
		courses.GET("/:id/students", c.Course.GetCourseStudents)
	}

	admins := authenticated.Group("/admins")
	{
		admins.GET("", c.Admin.ListAdmins)
		admins.POST("", c.Admin.CreateAdmin)
		admins.GET("/:id", c.Admin.GetAdmin)
		admins.PUT("/:id", c.Admin.UpdateAdmin)
		admins.DELETE("/:id", c.Admin.DeleteAdmin)
	}

	authenticated.POST("/admin/reconcile", c.Admin.Reconcile)
}
