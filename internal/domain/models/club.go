package models

import "time"

// Club is a student organization. MemberCount is a cached copy of the
// number of entries in the club's club_members index document and is only
// ever written by the membership store.
type Club struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	NameCI        string    `bson:"name_ci" json:"-"`
	Description   string    `bson:"description" json:"description"`
	DescriptionCI string    `bson:"description_ci" json:"-"`
	Category      string    `bson:"category,omitempty" json:"category,omitempty"`
	MeetingTime   string    `bson:"meeting_time,omitempty" json:"meeting_time,omitempty"`
	MemberCount   int       `bson:"member_count" json:"member_count"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
