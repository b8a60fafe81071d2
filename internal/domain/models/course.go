// internal/domain/models/course.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is a published training course shown on the portal.
type Course struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Subtitle    string             `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Body        string             `bson:"body" json:"body"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ImageID     string             `bson:"image_id,omitempty" json:"-"`
	IsPublished bool               `bson:"is_published" json:"is_published"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
