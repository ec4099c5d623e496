package models

import "time"

// Student represents a learner registered on the platform.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	BirthDate    time.Time `db:"birth_date" json:"birth_date"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	Page     int
	PageSize int
}
