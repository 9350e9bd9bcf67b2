package models

import "time"

// Student is a person who can join clubs. EmailCI is the normalized email
// and is unique across students.
type Student struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	NameCI        string    `bson:"name_ci" json:"-"`
	Email         string    `bson:"email" json:"email"`
	EmailCI       string    `bson:"email_ci" json:"-"`
	StudentNumber string    `bson:"student_number,omitempty" json:"student_number,omitempty"`
	Major         string    `bson:"major,omitempty" json:"major,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
