package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bloggen/bloggen_backend/config"
	"github.com/bloggen/bloggen_backend/models"
)

// PostRepository abstracts post persistence. FindByID and Update return
// (nil, nil) when the post does not exist.
type PostRepository interface {
	List(ctx context.Context) ([]models.Post, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Insert(ctx context.Context, post *models.Post) (primitive.ObjectID, error)
	Update(ctx context.Context, id primitive.ObjectID, title, content string) (*models.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type MongoPostRepository struct {
	collection *mongo.Collection
}

func NewPostRepository(db *mongo.Client) *MongoPostRepository {
	return &MongoPostRepository{
		collection: config.GetCollection(db, "posts"),
	}
}

func (r *MongoPostRepository) List(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *MongoPostRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (r *MongoPostRepository) Insert(ctx context.Context, post *models.Post) (primitive.ObjectID, error) {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, post)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return post.ID, nil
}

// Update applies the non-empty fields and returns the updated post.
func (r *MongoPostRepository) Update(ctx context.Context, id primitive.ObjectID, title, content string) (*models.Post, error) {
	set := bson.M{"updatedAt": time.Now()}
	if title != "" {
		set["title"] = title
	}
	if content != "" {
		set["content"] = content
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var post models.Post
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (r *MongoPostRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}
