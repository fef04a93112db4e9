package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hashtag is a (tag, day) aggregate with a usage count, unique per pair.
// The date is a YYYY-MM-DD string so day buckets sort lexicographically.
type Hashtag struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Tag       string             `json:"tag" bson:"tag"`
	Count     int                `json:"count" bson:"count"`
	Date      string             `json:"date" bson:"date"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// TrendingHashtag is one row of the trending response
type TrendingHashtag struct {
	Rank  int    `json:"rank"`
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
