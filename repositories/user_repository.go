package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bloggen/bloggen_backend/config"
	"github.com/bloggen/bloggen_backend/models"
)

// UserRepository abstracts user persistence so handlers can be exercised
// without a running MongoDB. Lookup methods return (nil, nil) when no
// matching user exists.
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByMobile(ctx context.Context, mobile string) (*models.User, error)
	CountByMobile(ctx context.Context, mobile string) (int64, error)
	Insert(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	UpdatePassword(ctx context.Context, mobile, hashedPassword string) (bool, error)
}

type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Client) *MongoUserRepository {
	return &MongoUserRepository{
		collection: config.GetCollection(db, "users"),
	}
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"mobile": mobile})
}

func (r *MongoUserRepository) CountByMobile(ctx context.Context, mobile string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"mobile": mobile})
}

func (r *MongoUserRepository) Insert(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return user.ID, nil
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, mobile, hashedPassword string) (bool, error) {
	result, err := r.collection.UpdateOne(ctx, bson.M{"mobile": mobile}, bson.M{
		"$set": bson.M{
			"password":  hashedPassword,
			"updatedAt": time.Now(),
		},
	})
	if err != nil {
		return false, err
	}
	return result.MatchedCount > 0, nil
}
