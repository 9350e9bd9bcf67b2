// internal/app/store/students/studentstore.go
package studentstore

import (
	"context"
	"errors"
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

var ErrDuplicateEmail = errors.New("a student with this email already exists")

func New(ds docstore.Store, members *membershipstore.Store) *Store {
	return &Store{ds: ds, members: members}
}

// Input is the editable part of a student.
type Input struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	StudentNumber string `json:"student_number"`
	Major         string `json:"major"`
}

func (in Input) clean() (Input, error) {
	out := Input{
		Name:          normalize.Name(htmlsanitize.StripTags(in.Name)),
		Email:         normalize.Text(in.Email),
		StudentNumber: normalize.Name(htmlsanitize.StripTags(in.StudentNumber)),
		Major:         normalize.Name(htmlsanitize.StripTags(in.Major)),
	}
	err := inputval.First(
		inputval.Required("name", out.Name),
		inputval.MaxLen("name", out.Name, inputval.MaxNameLen),
		inputval.Email("email", out.Email),
		inputval.MaxLen("student_number", out.StudentNumber, inputval.MaxShortFieldLen),
		inputval.MaxLen("major", out.Major, inputval.MaxShortFieldLen),
	)
	return out, err
}

func (in Input) apply(st *models.Student) {
	st.Name = in.Name
	st.NameCI = normalize.SearchKey(in.Name)
	st.Email = in.Email
	st.EmailCI = normalize.Email(in.Email)
	st.StudentNumber = in.StudentNumber
	st.Major = in.Major
}

func dupErr(err error) error {
	if errors.Is(err, docstore.ErrDuplicate) {
		return ErrDuplicateEmail
	}
	return err
}

// Create validates in and stores a new student. Emails are unique
// ignoring case.
func (s *Store) Create(ctx context.Context, in Input) (models.Student, error) {
	in, err := in.clean()
	if err != nil {
		return models.Student{}, err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	st := models.Student{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	in.apply(&st)
	if err := s.ds.InsertStudent(ctx, st); err != nil {
		return models.Student{}, dupErr(err)
	}
	return st, nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Student, error) {
	return s.ds.GetStudent(ctx, id)
}

// GetByEmail looks a student up by email, ignoring case.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Student, error) {
	return s.ds.GetStudentByEmail(ctx, normalize.Email(email))
}

// List returns all students ordered by name.
func (s *Store) List(ctx context.Context) ([]models.Student, error) {
	return s.ds.ListStudents(ctx)
}

func (s *Store) Update(ctx context.Context, id string, in Input) (models.Student, error) {
	in, err := in.clean()
	if err != nil {
		return models.Student{}, err
	}
	st, err := s.ds.GetStudent(ctx, id)
	if err != nil {
		return models.Student{}, err
	}
	in.apply(&st)
	st.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := s.ds.UpdateStudentInfo(ctx, st); err != nil {
		return models.Student{}, dupErr(err)
	}
	return st, nil
}

// Delete removes the student and all their memberships. Returns the number
// of memberships removed.
func (s *Store) Delete(ctx context.Context, id string) (int, error) {
	return s.members.DeleteStudentCascade(ctx, id)
}

// ImportResult counts the outcome of Import.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Failed  []string `json:"failed,omitempty"`
}

// Import creates each student in order. Rows whose email already exists
// are skipped; rows that fail validation are reported in Failed and do
// not stop the import. Store errors abort it.
func (s *Store) Import(ctx context.Context, rows []Input) (ImportResult, error) {
	var res ImportResult
	for _, in := range rows {
		_, err := s.Create(ctx, in)
		var ve *inputval.Error
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, ErrDuplicateEmail):
			res.Skipped++
		case errors.As(err, &ve):
			res.Failed = append(res.Failed, in.Email+": "+ve.Error())
		default:
			return res, err
		}
	}
	return res, nil
}
