package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course mirrors a Google Classroom course, cached locally so course lists do
// not hit the Classroom API on every request. LastSyncedAt gates refreshes.
type Course struct {
	ID                 primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	GoogleCourseID     string               `json:"google_course_id" bson:"google_course_id"`
	Name               string               `json:"name" bson:"name"`
	Section            string               `json:"section,omitempty" bson:"section,omitempty"`
	DescriptionHeading string               `json:"description_heading,omitempty" bson:"description_heading,omitempty"`
	AlternateLink      string               `json:"alternate_link,omitempty" bson:"alternate_link,omitempty"`
	Members            []primitive.ObjectID `json:"members" bson:"members"`
	Teachers           []primitive.ObjectID `json:"teachers" bson:"teachers"`
	OwnerID            string               `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	School             string               `json:"school,omitempty" bson:"school,omitempty"`
	LastSyncedAt       time.Time            `json:"last_synced_at" bson:"last_synced_at"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" bson:"updated_at"`
}
