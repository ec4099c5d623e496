package models

// Instructor teaches one or more courses.
type Instructor struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Email     string  `db:"email" json:"email"`
	Specialty string  `db:"specialty" json:"specialty"`
	Biography *string `db:"biography" json:"biography,omitempty"`
}

// InstructorFilter encapsulates allowed search parameters for listing instructors.
type InstructorFilter struct {
	Search   string
	Page     int
	PageSize int
}
