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

var studentSort = bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}, {Key: "_id", Value: 1}}

// StudentRepository stores students in the students collection
type StudentRepository struct {
	base
	coll *mongo.Collection
}

func studentFilter(f models.StudentFilter) bson.M {
	filter := bson.M{}
	if f.Program != "" {
		filter["program"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.Program) + "$", Options: "i"}
	}
	if f.Email != "" {
		filter["email"] = f.Email
	}
	if f.CourseID != "" {
		filter["courseIds"] = f.CourseID
	}
	return filter
}

func (r *StudentRepository) Find(ctx context.Context, filter models.StudentFilter, offset uint64, limit int) ([]*models.Student, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q := studentFilter(filter)
	total, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, translate("count students", err, nil)
	}
	cur, err := r.coll.Find(ctx, q, findOptions(offset, limit, studentSort))
	if err != nil {
		return nil, 0, translate("find students", err, nil)
	}
	students := []*models.Student{}
	if err := cur.All(ctx, &students); err != nil {
		return nil, 0, translate("find students", err, nil)
	}
	return students, total, nil
}

func (r *StudentRepository) findOne(ctx context.Context, op string, filter bson.M) (*models.Student, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	s := &models.Student{}
	if err := r.coll.FindOne(ctx, filter).Decode(s); err != nil {
		return nil, translate(op, err, apperrors.ErrStudentNotFound)
	}
	if s.CourseIDs == nil {
		s.CourseIDs = []string{}
	}
	return s, nil
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "find student by id", bson.M{"_id": id})
}

func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	return r.findOne(ctx, "find student by email", bson.M{"email": email})
}

func (r *StudentRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Student, error) {
	if len(ids) == 0 {
		return []*models.Student{}, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(studentSort))
	if err != nil {
		return nil, translate("find students by ids", err, nil)
	}
	students := []*models.Student{}
	if err := cur.All(ctx, &students); err != nil {
		return nil, translate("find students by ids", err, nil)
	}
	return students, nil
}

func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	doc := *s
	if doc.CourseIDs == nil {
		doc.CourseIDs = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, &doc); err != nil {
		return translate("create student", err, nil)
	}
	return nil
}

func (r *StudentRepository) UpdateByID(ctx context.Context, id string, patch models.StudentPatch) (*models.Student, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	putString(set, "studentNumber", patch.StudentNumber)
	putString(set, "email", patch.Email)
	putString(set, "firstName", patch.FirstName)
	putString(set, "lastName", patch.LastName)
	putString(set, "address", patch.Address)
	putString(set, "city", patch.City)
	putString(set, "phoneNumber", patch.PhoneNumber)
	putString(set, "program", patch.Program)

	s := &models.Student{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(s)
	if err != nil {
		return nil, translate("update student", err, apperrors.ErrStudentNotFound)
	}
	return s, nil
}

func (r *StudentRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updatePassword(ctx, "update student password", r.coll, id, passwordHash, apperrors.ErrStudentNotFound)
}

func (r *StudentRepository) DeleteByID(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "delete student", r.coll, id, apperrors.ErrStudentNotFound)
}

func (r *StudentRepository) AddCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	return r.setUpdate(ctx, "add course to student", r.coll, studentID,
		bson.M{"courseIds": bson.M{"$ne": courseID}},
		bson.M{"$addToSet": bson.M{"courseIds": courseID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		apperrors.ErrStudentNotFound)
}

func (r *StudentRepository) RemoveCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	return r.setUpdate(ctx, "remove course from student", r.coll, studentID,
		bson.M{"courseIds": courseID},
		bson.M{"$pull": bson.M{"courseIds": courseID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
		apperrors.ErrStudentNotFound)
}

func (r *StudentRepository) FindIDsByCourse(ctx context.Context, courseID string) ([]string, error) {
	return r.distinctIDs(ctx, "find students by course", r.coll, bson.M{"courseIds": courseID})
}
