// internal/domain/models/lecture.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lecture is a recorded session with a watch link. Views is incremented
// every time the lecture is read through the public endpoint.
type Lecture struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Subtitle  string             `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Body      string             `bson:"body,omitempty" json:"body,omitempty"`
	ImageURL  string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ImageID   string             `bson:"image_id,omitempty" json:"-"`
	WatchURL  string             `bson:"watch_url" json:"watch_url"`
	Category  string             `bson:"category,omitempty" json:"category,omitempty"`
	Tags      []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsPublic  bool               `bson:"is_public" json:"is_public"`
	Views     int64              `bson:"views" json:"views"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
