package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/services"
	"github.com/yigit/coursereg/internal/middleware"
	"github.com/yigit/coursereg/internal/pkg/helpers"
)

// AdminController handles admin account endpoints and maintenance operations
type AdminController struct {
	adminService services.AdminService
	reconciler   *services.Reconciler
}

// NewAdminController creates a new AdminController
func NewAdminController(adminService services.AdminService, reconciler *services.Reconciler) *AdminController {
	return &AdminController{
		adminService: adminService,
		reconciler:   reconciler,
	}
}

// ListAdmins lists admin accounts
// @Summary List admins
// @Tags admins
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.AdminResponse}}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - User does not have permission"
// @Router /admins [get]
func (c *AdminController) ListAdmins(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)
	admins, total, err := c.adminService.List(ctx.Request.Context(), middleware.ClaimsFromContext(ctx), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      dto.FromAdmins(admins),
		Pagination: helpers.NewPaginationInfo(total, page, size),
	}))
}

// GetAdmin returns one admin
// @Summary Get an admin
// @Tags admins
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin ID" Format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.AdminResponse}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - User does not have permission"
// @Failure 404 {object} dto.ErrorResponse "Admin not found"
// @Router /admins/{id} [get]
func (c *AdminController) GetAdmin(ctx *gin.Context) {
	admin, err := c.adminService.GetByID(ctx.Request.Context(), middleware.ClaimsFromContext(ctx), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromAdmin(admin)))
}

// CreateAdmin creates an admin account
// @Summary Create an admin
// @Tags admins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAdminRequest true "Admin information"
// @Success 201 {object} dto.APIResponse{data=dto.AdminResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 403 {object} dto.ErrorResponse "Forbidden - User does not have permission"
// @Failure 409 {object} dto.ErrorResponse "Username or email already in use"
// @Router /admins [post]
func (c *AdminController) CreateAdmin(ctx *gin.Context) {
	var req dto.CreateAdminRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	admin, err := c.adminService.Create(ctx.Request.Context(), middleware.ClaimsFromContext(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.FromAdmin(admin)))
}

// UpdateAdmin applies a partial update
// @Summary Update an admin
// @Tags admins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin ID" Format(uuid)
// @Param request body dto.UpdateAdminRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.AdminResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Admin not found"
// @Failure 409 {object} dto.ErrorResponse "Username or email already in use"
// @Router /admins/{id} [put]
func (c *AdminController) UpdateAdmin(ctx *gin.Context) {
	var req dto.UpdateAdminRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	admin, err := c.adminService.Update(ctx.Request.Context(), middleware.ClaimsFromContext(ctx), ctx.Param("id"), req.ToPatch())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.FromAdmin(admin)))
}

// DeleteAdmin deletes an admin account
// @Summary Delete an admin
// @Description The last remaining admin cannot be deleted
// @Tags admins
// @Produce json
// @Security BearerAuth
// @Param id path string true "Admin ID" Format(uuid)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 403 {object} dto.ErrorResponse "Forbidden or last admin"
// @Failure 404 {object} dto.ErrorResponse "Admin not found"
// @Router /admins/{id} [delete]
func (c *AdminController) DeleteAdmin(ctx *gin.Context) {
	if err := c.adminService.Delete(ctx.Request.Context(), middleware.ClaimsFromContext(ctx), ctx.Param("id")); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Admin deleted"}))
}

// Reconcile runs a full enrollment reconciliation sweep
// @Summary Reconcile enrollments
// @Description Repairs every student/course pair whose two sides disagree
// @Tags admins
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.ReconcileReport}
// @Failure 403 {object} dto.ErrorResponse "Forbidden - User does not have permission"
// @Failure 503 {object} dto.ErrorResponse "Store unavailable"
// @Router /admin/reconcile [post]
func (c *AdminController) Reconcile(ctx *gin.Context) {
	report, err := c.reconciler.Trigger(ctx.Request.Context(), middleware.ClaimsFromContext(ctx))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}
