package models

import "time"

// Membership is the authoritative join between students and clubs.
// Exactly one document per (club_id, student_id).
type Membership struct {
	ID        string    `bson:"_id" json:"id"`
	ClubID    string    `bson:"club_id" json:"club_id"`
	StudentID string    `bson:"student_id" json:"student_id"`
	Role      Role      `bson:"role" json:"role"`
	JoinDate  time.Time `bson:"join_date" json:"join_date"`
}

// IndexEntry is the payload mirrored into both denormalized indexes.
// It must always equal the fields of the Membership it was derived from.
type IndexEntry struct {
	MembershipID string    `bson:"membership_id" json:"membership_id"`
	Role         Role      `bson:"role" json:"role"`
	JoinDate     time.Time `bson:"join_date" json:"join_date"`
}

// Entry returns the index payload for m.
func (m Membership) Entry() IndexEntry {
	return IndexEntry{MembershipID: m.ID, Role: m.Role, JoinDate: m.JoinDate}
}

// ClubMembers is the club_members document: one per club, keyed by
// student_id.
type ClubMembers struct {
	ClubID  string                `bson:"_id" json:"club_id"`
	Members map[string]IndexEntry `bson:"members" json:"members"`
}

// StudentMemberships is the student_memberships document: one per student,
// keyed by club_id.
type StudentMemberships struct {
	StudentID string                `bson:"_id" json:"student_id"`
	Clubs     map[string]IndexEntry `bson:"clubs" json:"clubs"`
}

// RosterEntry is one row of a club roster read from club_members.
type RosterEntry struct {
	StudentID    string    `json:"student_id"`
	MembershipID string    `json:"membership_id"`
	Role         Role      `json:"role"`
	JoinDate     time.Time `json:"join_date"`
}

// StudentClubEntry is one row of a student's club list read from
// student_memberships.
type StudentClubEntry struct {
	ClubID       string    `json:"club_id"`
	MembershipID string    `json:"membership_id"`
	Role         Role      `json:"role"`
	JoinDate     time.Time `json:"join_date"`
}

// ClubMember is a roster row joined with the student's record.
type ClubMember struct {
	Student
	MembershipID string    `json:"membership_id"`
	Role         Role      `json:"role"`
	JoinDate     time.Time `json:"join_date"`
}

// StudentClub is a student's club entry joined with the club's record.
type StudentClub struct {
	Club
	MembershipID string    `json:"membership_id"`
	Role         Role      `json:"role"`
	JoinDate     time.Time `json:"join_date"`
}
