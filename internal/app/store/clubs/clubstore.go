// internal/app/store/clubs/clubstore.go
package clubstore

import (
	"context"
	"time"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	membershipstore "github.com/dalemusser/clubhouse/internal/app/store/memberships"
	"github.com/dalemusser/clubhouse/internal/app/system/htmlsanitize"
	"github.com/dalemusser/clubhouse/internal/app/system/inputval"
	"github.com/dalemusser/clubhouse/internal/app/system/normalize"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	"github.com/google/uuid"
)

type Store struct {
	ds      docstore.Store
	members *membershipstore.Store
}

func New(ds docstore.Store, members *membershipstore.Store) *Store {
	return &Store{ds: ds, members: members}
}

// Input is the editable part of a club.
type Input struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	MeetingTime string `json:"meeting_time"`
}

func (in Input) clean() (Input, error) {
	out := Input{
		Name:        normalize.Name(htmlsanitize.StripTags(in.Name)),
		Description: normalize.Text(htmlsanitize.StripTags(in.Description)),
		Category:    normalize.Name(htmlsanitize.StripTags(in.Category)),
		MeetingTime: normalize.Name(htmlsanitize.StripTags(in.MeetingTime)),
	}
	err := inputval.First(
		inputval.Required("name", out.Name),
		inputval.MaxLen("name", out.Name, inputval.MaxNameLen),
		inputval.MaxLen("description", out.Description, inputval.MaxDescriptionLen),
		inputval.MaxLen("category", out.Category, inputval.MaxShortFieldLen),
		inputval.MaxLen("meeting_time", out.MeetingTime, inputval.MaxShortFieldLen),
	)
	return out, err
}

func (in Input) apply(c *models.Club) {
	c.Name = in.Name
	c.NameCI = normalize.SearchKey(in.Name)
	c.Description = in.Description
	c.DescriptionCI = normalize.SearchKey(in.Description)
	c.Category = in.Category
	c.MeetingTime = in.MeetingTime
}

// Create validates in and stores a new club with member_count 0.
func (s *Store) Create(ctx context.Context, in Input) (models.Club, error) {
	in, err := in.clean()
	if err != nil {
		return models.Club{}, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	c := models.Club{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	in.apply(&c)
	if err := s.ds.InsertClub(ctx, c); err != nil {
		return models.Club{}, err
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Club, error) {
	return s.ds.GetClub(ctx, id)
}

// List returns all clubs ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Club, error) {
	return s.ds.ListClubs(ctx)
}

// Search matches q case-insensitively against name and description. A
// blank query lists everything.
func (s *Store) Search(ctx context.Context, q string) ([]models.Club, error) {
	key := normalize.SearchKey(q)
	if key == "" {
		return s.ds.ListClubs(ctx)
	}
	return s.ds.SearchClubs(ctx, key)
}

// Update replaces the descriptive fields. member_count is not touched.
func (s *Store) Update(ctx context.Context, id string, in Input) (models.Club, error) {
	in, err := in.clean()
	if err != nil {
		return models.Club{}, err
	}
	c, err := s.ds.GetClub(ctx, id)
	if err != nil {
		return models.Club{}, err
	}
	in.apply(&c)
	c.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := s.ds.UpdateClubInfo(ctx, c); err != nil {
		return models.Club{}, err
	}
	return c, nil
}

// Delete removes the club and all its memberships. Returns the number of
// memberships removed.
func (s *Store) Delete(ctx context.Context, id string) (int, error) {
	return s.members.DeleteClubCascade(ctx, id)
}
