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

// CommentRepository abstracts comment persistence. FindByID returns
// (nil, nil) when the comment does not exist.
type CommentRepository interface {
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	Insert(ctx context.Context, comment *models.Comment) (primitive.ObjectID, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeleteByPost(ctx context.Context, postID string) (int64, error)
}

type MongoCommentRepository struct {
	collection *mongo.Collection
}

func NewCommentRepository(db *mongo.Client) *MongoCommentRepository {
	return &MongoCommentRepository{
		collection: config.GetCollection(db, "comments"),
	}
}

func (r *MongoCommentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"postId": postID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *MongoCommentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&comment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

func (r *MongoCommentRepository) Insert(ctx context.Context, comment *models.Comment) (primitive.ObjectID, error) {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	comment.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, comment)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return comment.ID, nil
}

func (r *MongoCommentRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return result.DeletedCount > 0, nil
}

func (r *MongoCommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"postId": postID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
