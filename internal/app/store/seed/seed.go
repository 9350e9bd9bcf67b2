// Package seed loads a small demonstration data set: six students, six
// clubs and a random set of memberships.
package seed

import (
	"context"
	"errors"
	"math/rand/v2"

	clubstore "github.com/dalemusser/clubhouse/internal/app/store/clubs"
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	studentstore "github.com/dalemusser/clubhouse/internal/app/store/students"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"go.uber.org/zap"
)

var sampleStudents = []studentstore.Input{
	{Name: "Alice Johnson", Email: "alice.johnson@university.edu"},
	{Name: "Bob Smith", Email: "bob.smith@university.edu"},
	{Name: "Charlie Brown", Email: "charlie.brown@university.edu"},
	{Name: "Diana Prince", Email: "diana.prince@university.edu"},
	{Name: "Edward Wilson", Email: "edward.wilson@university.edu"},
	{Name: "Fiona Davis", Email: "fiona.davis@university.edu"},
}

var sampleClubs = []clubstore.Input{
	{Name: "Chess Club", Category: "Games", MeetingTime: "Tuesdays 6pm",
		Description: "Strategic thinking meets friendly competition. Weekly tournaments and lessons for players of all skill levels."},
	{Name: "Computer Science Club", Category: "Academic", MeetingTime: "Wednesdays 5pm",
		Description: "A community for students passionate about programming, algorithms, and technology. We organize coding competitions, tech talks, and workshops."},
	{Name: "Debate Society", Category: "Academic", MeetingTime: "Thursdays 7pm",
		Description: "Sharpen your argumentation skills and engage in intellectual discourse on current events and philosophical topics."},
	{Name: "Drama Club", Category: "Arts", MeetingTime: "Mondays 6pm",
		Description: "Express yourself through theater! We produce plays, organize workshops, and welcome actors, directors, and crew members."},
	{Name: "Environmental Action Group", Category: "Service", MeetingTime: "Fridays 4pm",
		Description: "Dedicated to promoting sustainability and environmental awareness on campus through events, cleanups, and advocacy."},
	{Name: "Literary Society", Category: "Arts", MeetingTime: "Sundays 3pm",
		Description: "Explore literature through book clubs, poetry readings, and creative writing workshops. All literature lovers welcome!"},
}

// rolesBySeat is the role given to the n-th student picked for a club.
var rolesBySeat = []models.Role{
	models.RoleMember,
	models.RoleOfficer,
	models.RoleMember,
	models.RoleMember,
	models.RoleSecretary,
	models.RoleMember,
}

const (
	minMembers = 2
	maxMembers = 4
)

// Result counts what a run created. Records that already existed are
// reused and not counted.
type Result struct {
	StudentsCreated    int `json:"students_created"`
	ClubsCreated       int `json:"clubs_created"`
	MembershipsCreated int `json:"memberships_created"`
}

// Seeder writes the sample data through the regular stores so every
// membership maintains the indexes and member_count.
type Seeder struct {
	Clubs    *clubstore.Store
	Students *studentstore.Store
	Members  *membershipstore.Store
	Log      *zap.Logger
	rng      *rand.Rand
}

// New returns a Seeder. rng may be nil for a randomly seeded generator.
func New(clubs *clubstore.Store, students *studentstore.Store, members *membershipstore.Store, rng *rand.Rand, log *zap.Logger) *Seeder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Seeder{Clubs: clubs, Students: students, Members: members, Log: log, rng: rng}
}

// Run loads the sample data. It is safe to run more than once: students
// are matched by email and clubs by name.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	studentIDs := make([]string, 0, len(sampleStudents))
	for _, in := range sampleStudents {
		st, err := s.Students.Create(ctx, in)
		switch {
		case err == nil:
			res.StudentsCreated++
		case errors.Is(err, studentstore.ErrDuplicateEmail):
			st, err = s.Students.GetByEmail(ctx, in.Email)
			if err != nil {
				return res, err
			}
		default:
			return res, err
		}
		studentIDs = append(studentIDs, st.ID)
	}

	existing, err := s.Clubs.List(ctx)
	if err != nil {
		return res, err
	}
	byName := make(map[string]string, len(existing))
	for _, c := range existing {
		byName[c.Name] = c.ID
	}

	clubIDs := make([]string, 0, len(sampleClubs))
	for _, in := range sampleClubs {
		if id, ok := byName[in.Name]; ok {
			clubIDs = append(clubIDs, id)
			continue
		}
		c, err := s.Clubs.Create(ctx, in)
		if err != nil {
			return res, err
		}
		res.ClubsCreated++
		clubIDs = append(clubIDs, c.ID)
	}

	for _, clubID := range clubIDs {
		n := minMembers + s.rng.IntN(maxMembers-minMembers+1)
		picked := s.rng.Perm(len(studentIDs))[:n]
		for seat, idx := range picked {
			role := rolesBySeat[seat%len(rolesBySeat)]
			if seat == 0 && s.rng.Float64() > 0.5 {
				role = models.RolePresident
			}
			_, err := s.Members.Create(ctx, clubID, studentIDs[idx], role)
			switch {
			case err == nil:
				res.MembershipsCreated++
			case errors.Is(err, membershipstore.ErrDuplicateMembership):
			default:
				return res, err
			}
		}
	}

	s.Log.Info("sample data loaded",
		zap.Int("students_created", res.StudentsCreated),
		zap.Int("clubs_created", res.ClubsCreated),
		zap.Int("memberships_created", res.MembershipsCreated))
	return res, nil
}
