// Package mongostore implements the repositories on MongoDB. Reference sets are arrays
// changed with $addToSet / $pull, uniqueness is enforced by named unique indexes.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/dberrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	studentsCollection = "students"
	coursesCollection  = "courses"
	adminsCollection   = "admins"
)

// unique index name -> domain error; names match the postgres constraints
var indexErrors = map[string]error{
	"students_student_number_key": apperrors.ErrStudentNumberUsed,
	"students_email_key":          apperrors.ErrEmailExists,
	"courses_course_code_key":     apperrors.ErrCourseCodeExists,
	"admins_username_key":         apperrors.ErrUsernameExists,
	"admins_email_key":            apperrors.ErrEmailExists,
}

// NewRepositories builds all repositories on database. Every call runs under opTimeout.
func NewRepositories(client *mongo.Client, database *mongo.Database, opTimeout time.Duration) *repositories.Repositories {
	b := base{timeout: opTimeout}
	return &repositories.Repositories{
		StudentRepository: &StudentRepository{base: b, coll: database.Collection(studentsCollection)},
		CourseRepository:  &CourseRepository{base: b, coll: database.Collection(coursesCollection)},
		AdminRepository:   &AdminRepository{base: b, coll: database.Collection(adminsCollection)},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		Close: client.Disconnect,
	}
}

// EnsureIndexes creates the unique and lookup indexes. It is safe to call on every start.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	unique := func(name string, keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
	}
	plain := func(name string, keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
	}

	indexes := map[string][]mongo.IndexModel{
		studentsCollection: {
			unique("students_student_number_key", bson.D{{Key: "studentNumber", Value: 1}}),
			unique("students_email_key", bson.D{{Key: "email", Value: 1}}),
			plain("idx_students_course_ids", bson.D{{Key: "courseIds", Value: 1}}),
		},
		coursesCollection: {
			unique("courses_course_code_key", bson.D{{Key: "courseCode", Value: 1}}),
			plain("idx_courses_student_ids", bson.D{{Key: "studentIds", Value: 1}}),
		},
		adminsCollection: {
			unique("admins_username_key", bson.D{{Key: "username", Value: 1}}),
			unique("admins_email_key", bson.D{{Key: "email", Value: 1}}),
		},
	}

	for coll, models := range indexes {
		if _, err := database.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

type base struct {
	timeout time.Duration
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// translate maps driver errors onto the apperrors taxonomy
func translate(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) && notFound != nil {
		return notFound
	}
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		for index, domainErr := range indexErrors {
			if strings.Contains(msg, index) {
				return domainErr
			}
		}
		return fmt.Errorf("%s: %w", op, apperrors.ErrResourceAlreadyExists)
	}
	return dberrors.Wrap(op, err)
}

func findOptions(offset uint64, limit int, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

// setUpdate runs a guarded $addToSet / $pull. filter must exclude documents already in the
// desired state; when nothing matched, a second lookup tells "unchanged" from "missing".
func (b base) setUpdate(ctx context.Context, op string, coll *mongo.Collection, id string, guard bson.M, update bson.M, notFound error) (bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": id}
	for k, v := range guard {
		filter[k] = v
	}
	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, translate(op, err, notFound)
	}
	if res.ModifiedCount > 0 {
		return true, nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(op, err, notFound)
	}
	if n == 0 {
		return false, notFound
	}
	return false, nil
}

func (b base) distinctIDs(ctx context.Context, op string, coll *mongo.Collection, filter bson.M) ([]string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	cur, err := coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translate(op, err, nil)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(op, err, nil)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (b base) deleteByID(ctx context.Context, op string, coll *mongo.Collection, id string, notFound error) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(op, err, notFound)
	}
	if res.DeletedCount == 0 {
		return notFound
	}
	return nil
}

func (b base) updatePassword(ctx context.Context, op string, coll *mongo.Collection, id, hash string, notFound error) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hash, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return translate(op, err, notFound)
	}
	if res.MatchedCount == 0 {
		return notFound
	}
	return nil
}

// putString adds a non-nil patch field to a $set document
func putString(set bson.M, field string, value *string) {
	if value != nil {
		set[field] = *value
	}
}
