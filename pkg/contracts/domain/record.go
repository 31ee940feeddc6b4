package domain

import (
	"time"
)

// Field names of a Record, in output column order.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldDate      = "date"
)

// FieldNames lists the Record columns in the order they appear on the wire.
var FieldNames = []string{FieldFirstName, FieldLastName, FieldDate}

// Record is one parsed row of a partition. Only the calendar date of Date
// is meaningful; the time of day is whatever the matching pattern produced
// (midnight UTC for date-only patterns).
type Record struct {
	FirstName string    `json:"first_name" validate:"required"`
	LastName  string    `json:"last_name"`
	Date      time.Time `json:"date" validate:"required"`
}

// Partition identifies one CSV entry inside a mounted archive.
// Path is absolute within the mount, e.g. "/people/a.csv".
type Partition struct {
	Path string `json:"path" validate:"required"`
}

// String returns the partition path.
func (p Partition) String() string {
	return p.Path
}
