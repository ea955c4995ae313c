// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model
type User struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	FirstName   string             `json:"firstName" bson:"firstName"`
	LastName    string             `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Email       string             `json:"email" bson:"email"`
	Mobile      string             `json:"mobile" bson:"mobile"`
	DateOfBirth string             `json:"dob" bson:"dob"`
	Username    string             `json:"username" bson:"username"`
	Password    string             `json:"password,omitempty" bson:"password"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Response is the standard JSON envelope returned by every handler
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
