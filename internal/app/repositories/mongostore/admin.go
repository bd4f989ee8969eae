package mongostore

import (
	"context"
	"time"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AdminRepository stores admins in the admins collection
type AdminRepository struct {
	base
	coll *mongo.Collection
}

func (r *AdminRepository) Find(ctx context.Context, offset uint64, limit int) ([]*models.Admin, int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, translate("count admins", err, nil)
	}
	cur, err := r.coll.Find(ctx, bson.M{}, findOptions(offset, limit, bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, 0, translate("find admins", err, nil)
	}
	admins := []*models.Admin{}
	if err := cur.All(ctx, &admins); err != nil {
		return nil, 0, translate("find admins", err, nil)
	}
	return admins, total, nil
}

func (r *AdminRepository) findOne(ctx context.Context, op string, filter bson.M) (*models.Admin, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	a := &models.Admin{}
	if err := r.coll.FindOne(ctx, filter).Decode(a); err != nil {
		return nil, translate(op, err, apperrors.ErrAdminNotFound)
	}
	return a, nil
}

func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.findOne(ctx, "find admin by id", bson.M{"_id": id})
}

func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.findOne(ctx, "find admin by username", bson.M{"username": username})
}

func (r *AdminRepository) Create(ctx context.Context, a *models.Admin) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		return translate("create admin", err, nil)
	}
	return nil
}

func (r *AdminRepository) UpdateByID(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	putString(set, "username", patch.Username)
	putString(set, "email", patch.Email)
	putString(set, "firstName", patch.FirstName)
	putString(set, "lastName", patch.LastName)

	a := &models.Admin{}
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(a)
	if err != nil {
		return nil, translate("update admin", err, apperrors.ErrAdminNotFound)
	}
	return a, nil
}

func (r *AdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updatePassword(ctx, "update admin password", r.coll, id, passwordHash, apperrors.ErrAdminNotFound)
}

func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate("count admins", err, nil)
	}
	return n, nil
}

// DeleteIfNotLast deletes the admin, then restores it if the collection became empty.
// Standalone servers have no multi-document transactions, so two admins deleting each
// other at the same time can both see an empty collection: both documents are re-inserted
// and both callers get apperrors.ErrLastAdmin. The collection is empty only between the
// delete and the re-insert, and at least one admin always survives.
func (r *AdminRepository) DeleteIfNotLast(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return translate("count admins", err, nil)
	}
	if total <= 1 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return translate("find admin", err, nil)
		}
		if n == 0 {
			return apperrors.ErrAdminNotFound
		}
		return apperrors.ErrLastAdmin
	}

	deleted := &models.Admin{}
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(deleted); err != nil {
		return translate("delete admin", err, apperrors.ErrAdminNotFound)
	}

	remaining, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return translate("count admins", err, nil)
	}
	if remaining == 0 {
		if _, err := r.coll.InsertOne(ctx, deleted); err != nil {
			return translate("restore admin", err, nil)
		}
		return apperrors.ErrLastAdmin
	}
	return nil
}
