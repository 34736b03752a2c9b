package models

import (
	"time"

	"github.com/google/uuid"
)

// Fighter is a minimal participant record, created on demand with placeholder
// data when a snapshot references a fighter unknown to storage. Enrichment
// (record, reach, stance, stats) happens through a separate ingestion path.
type Fighter struct {
	ID            uuid.UUID `db:"id" json:"id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	FullName      string    `db:"full_name" json:"full_name"`
	WeightClass   *string   `db:"weight_class" json:"weight_class,omitempty"`
	Sex           *string   `db:"sex" json:"sex,omitempty"`
	IsPlaceholder bool      `db:"is_placeholder" json:"is_placeholder"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TableName returns the database table name
func (Fighter) TableName() string {
	return "fighters"
}
