package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post model for blog posts. UserID holds the owner identity asserted by the
// bearer token, not an ObjectID reference.
type Post struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content" bson:"content"`
	UserID    string             `json:"userId" bson:"userId"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Comment model for post comments. PostID is the hex string of the parent
// post's ObjectID.
type Comment struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PostID    string             `json:"postId" bson:"postId"`
	UserID    string             `json:"userId" bson:"userId"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// PostRequest model for creating a new post
type PostRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	UserID  string `json:"userId,omitempty"`
}

// PostUpdateRequest model for partial post updates
type PostUpdateRequest struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

// CommentRequest model for creating a new comment
type CommentRequest struct {
	Content string `json:"content" validate:"required"`
	UserID  string `json:"userId,omitempty"`
}
