package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var courseSort = bson.D{{Key: "courseCode", Value: 1}, {Key: "_id", Value: 1}}

// CourseRepository stores courses in the courses collection
type CourseRepository struct {
	base
	coll *mongo.Collection
}

func courseFilter(f models.CourseFilter) bson.M {
	filter := bson.M{}
	if f.Semester != "" {
		filter["semester"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Semester) + "$", Options: "i"}
	}
	if f.StudentID != "" {
		filter["studentIds"] = f.StudentID
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"courseCode": pattern},
			bson.M{"courseName": pattern},
		}
	}
	return filter
}

func (r *CourseRepository) Find(ctx context.Context, filter models.CourseFilter, offset uint64, limit int) ([]*models.Course, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q := courseFilter(filter)
	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, translate("count courses", err, nil)
	}
	cur, err := r.coll.Find(ctx, q, findOptions(offset, limit, courseSort))
	if err != nil {
		return nil, 0, translate("find courses", err, nil)
	}
	courses := []*models.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, 0, translate("find courses", err, nil)
	}
	return courses, total, nil
}

func (r *CourseRepository) findOne(ctx context.Context, op string, filter bson.M) (*models.Course, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	c := &models.Course{}
	if err := r.coll.FindOne(ctx, filter).Decode(c); err != nil {
		return nil, translate(op, err, apperrors.ErrCourseNotFound)
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
	return c, nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return r.findOne(ctx, "find course by id", bson.M{"_id": id})
}

func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	return r.findOne(ctx, "find course by code", bson.M{"courseCode": code})
}

func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Course, error) {
	if len(ids) == 0 {
		return []*models.Course{}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(courseSort))
	if err != nil {
		return nil, translate("find courses by ids", err, nil)
	}
	courses := []*models.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, translate("find courses by ids", err, nil)
	}
	return courses, nil
}

func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc := *c
	if doc.StudentIDs == nil {
		doc.StudentIDs = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, &doc); err != nil {
		return translate("create course", err, nil)
	}
	return nil
}

func (r *CourseRepository) UpdateByID(ctx context.Context, id string, patch models.CoursePatch) (*models.Course, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	putString(set, "courseCode", patch.CourseCode)
	putString(set, "courseName", patch.CourseName)
	putString(set, "section", patch.Section)
	putString(set, "semester", patch.Semester)

	c := &models.Course{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(c)
	if err != nil {
		return nil, translate("update course", err, apperrors.ErrCourseNotFound)
	}
	return c, nil
}

func (r *CourseRepository) DeleteByID(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "delete course", r.coll, id, apperrors.ErrCourseNotFound)
}

func (r *CourseRepository) AddStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	return r.setUpdate(ctx, "add student to course", r.coll, courseID,
		bson.M{"studentIds": bson.M{"$ne": studentID}},
		bson.M{"$addToSet": bson.M{"studentIds": studentID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		apperrors.ErrCourseNotFound)
}

func (r *CourseRepository) RemoveStudent(ctx context.Context, courseID, studentID string) (bool, error) {
	return r.setUpdate(ctx, "remove student from course", r.coll, courseID,
		bson.M{"studentIds": studentID},
		bson.M{"$pull": bson.M{"studentIds": studentID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		apperrors.ErrCourseNotFound)
}

func (r *CourseRepository) FindIDsByStudent(ctx context.Context, studentID string) ([]string, error) {
	return r.distinctIDs(ctx, "find courses by student", r.coll, bson.M{"studentIds": studentID})
}
