// Package mongodoc is the MongoDB implementation of docstore.Store.
//
// Index documents are addressed with dotted paths (members.<student_id>,
// clubs.<club_id>) so a single entry is written with $set/$unset and the
// enclosing document is created by upsert on first use.
package mongodoc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"github.com/dalemusser/clubhouse/internal/app/system/txn"
	"github.com/dalemusser/clubhouse/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var _ docstore.Store = (*Store)(nil)

// Store wraps one database.
type Store struct {
	db  *mongo.Database
	log *zap.Logger

	clubs        *mongo.Collection
	students     *mongo.Collection
	memberships  *mongo.Collection
	clubMembers  *mongo.Collection
	studentClubs *mongo.Collection
}

// New returns a Store over db. A nil logger is replaced with zap.L().
func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.L()
	}
	return &Store{
		db:           db,
		log:          log,
		clubs:        db.Collection(docstore.Clubs),
		students:     db.Collection(docstore.Students),
		memberships:  db.Collection(docstore.Memberships),
		clubMembers:  db.Collection(docstore.ClubMembers),
		studentClubs: db.Collection(docstore.StudentMemberships),
	}
}

// DB exposes the underlying database for schema setup.
func (s *Store) DB() *mongo.Database { return s.db }

// mapErr translates driver errors into docstore sentinels. kind/id name the
// record for not-found errors.
func mapErr(err error, kind, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return docstore.NotFound(kind, id)
	case wafflemongo.IsDup(err):
		return fmt.Errorf("%s %s: %w", kind, id, docstore.ErrDuplicate)
	case unavailable(err):
		return fmt.Errorf("%w: %w", docstore.ErrUnavailable, err)
	}
	return err
}

func unavailable(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	return errors.Is(err, mongo.ErrClientDisconnected) ||
		strings.Contains(strings.ToLower(err.Error()), "server selection")
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return mapErr(s.db.Client().Ping(ctx, readpref.Primary()), "database", s.db.Name())
}

// RunInTx runs fn in a MongoDB transaction. Deployments without
// transaction support run fn directly and report failures wrapped in
// txn.ErrNotAtomic.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	t := &tx{Store: s}
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		return fn(ctx, t)
	})
}

/* ----------------------------- entity writes ----------------------------- */

func (s *Store) InsertClub(ctx context.Context, c models.Club) error {
	_, err := s.clubs.InsertOne(ctx, c)
	return mapErr(err, "club", c.ID)
}

func (s *Store) UpdateClubInfo(ctx context.Context, c models.Club) error {
	res, err := s.clubs.UpdateOne(ctx, bson.M{"_id": c.ID}, bson.M{"$set": bson.M{
		"name":           c.Name,
		"name_ci":        c.NameCI,
		"description":    c.Description,
		"description_ci": c.DescriptionCI,
		"category":       c.Category,
		"meeting_time":   c.MeetingTime,
		"updated_at":     c.UpdatedAt,
	}})
	if err != nil {
		return mapErr(err, "club", c.ID)
	}
	if res.MatchedCount == 0 {
		return docstore.NotFound("club", c.ID)
	}
	return nil
}

func (s *Store) InsertStudent(ctx context.Context, st models.Student) error {
	_, err := s.students.InsertOne(ctx, st)
	return mapErr(err, "student", st.EmailCI)
}

func (s *Store) UpdateStudentInfo(ctx context.Context, st models.Student) error {
	res, err := s.students.UpdateOne(ctx, bson.M{"_id": st.ID}, bson.M{"$set": bson.M{
		"name":           st.Name,
		"name_ci":        st.NameCI,
		"email":          st.Email,
		"email_ci":       st.EmailCI,
		"student_number": st.StudentNumber,
		"major":          st.Major,
		"updated_at":     st.UpdatedAt,
	}})
	if err != nil {
		return mapErr(err, "student", st.EmailCI)
	}
	if res.MatchedCount == 0 {
		return docstore.NotFound("student", st.ID)
	}
	return nil
}

/* --------------------------------- reads --------------------------------- */

var byName = options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
var byJoin = options.Find().SetSort(bson.D{{Key: "join_date", Value: 1}, {Key: "_id", Value: 1}})

func (s *Store) GetClub(ctx context.Context, id string) (models.Club, error) {
	var c models.Club
	err := s.clubs.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	return c, mapErr(err, "club", id)
}

func (s *Store) ListClubs(ctx context.Context) ([]models.Club, error) {
	return findAll[models.Club](ctx, s.clubs, bson.M{}, byName)
}

func (s *Store) SearchClubs(ctx context.Context, folded string) ([]models.Club, error) {
	re := bson.M{"$regex": regexp.QuoteMeta(folded)}
	return findAll[models.Club](ctx, s.clubs, bson.M{"$or": bson.A{
		bson.M{"name_ci": re},
		bson.M{"description_ci": re},
	}}, byName)
}

func (s *Store) GetStudent(ctx context.Context, id string) (models.Student, error) {
	var st models.Student
	err := s.students.FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	return st, mapErr(err, "student", id)
}

func (s *Store) GetStudentByEmail(ctx context.Context, emailCI string) (models.Student, error) {
	var st models.Student
	err := s.students.FindOne(ctx, bson.M{"email_ci": emailCI}).Decode(&st)
	return st, mapErr(err, "student", emailCI)
}

func (s *Store) ListStudents(ctx context.Context) ([]models.Student, error) {
	return findAll[models.Student](ctx, s.students, bson.M{}, byName)
}

func (s *Store) GetStudents(ctx context.Context, ids []string) (map[string]models.Student, error) {
	out := make(map[string]models.Student, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := findAll[models.Student](ctx, s.students, bson.M{"_id": bson.M{"$in": ids}}, nil)
	if err != nil {
		return nil, err
	}
	for _, st := range list {
		out[st.ID] = st
	}
	return out, nil
}

func (s *Store) FindMembership(ctx context.Context, clubID, studentID string) (models.Membership, error) {
	var m models.Membership
	err := s.memberships.FindOne(ctx, bson.M{"club_id": clubID, "student_id": studentID}).Decode(&m)
	return m, mapErr(err, "membership", docstore.PairID(clubID, studentID))
}

func (s *Store) ListMembershipsByClub(ctx context.Context, clubID string) ([]models.Membership, error) {
	return findAll[models.Membership](ctx, s.memberships, bson.M{"club_id": clubID}, byJoin)
}

func (s *Store) ListMembershipsByStudent(ctx context.Context, studentID string) ([]models.Membership, error) {
	return findAll[models.Membership](ctx, s.memberships, bson.M{"student_id": studentID}, byJoin)
}

func (s *Store) ClubMembers(ctx context.Context, clubID string) (models.ClubMembers, error) {
	d := models.ClubMembers{ClubID: clubID}
	err := s.clubMembers.FindOne(ctx, bson.M{"_id": clubID}).Decode(&d)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return d, mapErr(err, "club_members", clubID)
	}
	if d.Members == nil {
		d.Members = map[string]models.IndexEntry{}
	}
	return d, nil
}

func (s *Store) StudentMemberships(ctx context.Context, studentID string) (models.StudentMemberships, error) {
	d := models.StudentMemberships{StudentID: studentID}
	err := s.studentClubs.FindOne(ctx, bson.M{"_id": studentID}).Decode(&d)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return d, mapErr(err, "student_memberships", studentID)
	}
	if d.Clubs == nil {
		d.Clubs = map[string]models.IndexEntry{}
	}
	return d, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err, coll.Name(), "")
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, mapErr(err, coll.Name(), "")
	}
	return out, nil
}

/* ---------------------------------- tx ----------------------------------- */

// tx issues its writes with the session context handed to RunInTx's fn, so
// they join the surrounding transaction.
type tx struct {
	*Store
}

func (t *tx) InsertMembership(ctx context.Context, m models.Membership) error {
	_, err := t.memberships.InsertOne(ctx, m)
	return mapErr(err, "membership", docstore.PairID(m.ClubID, m.StudentID))
}

func (t *tx) SetMembershipRole(ctx context.Context, id string, role models.Role) error {
	res, err := t.memberships.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return mapErr(err, "membership", id)
	}
	if res.MatchedCount == 0 {
		return docstore.NotFound("membership", id)
	}
	return nil
}

func (t *tx) DeleteMembership(ctx context.Context, id string) error {
	res, err := t.memberships.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "membership", id)
	}
	if res.DeletedCount == 0 {
		return docstore.NotFound("membership", id)
	}
	return nil
}

func putEntry(ctx context.Context, coll *mongo.Collection, docID, field string, e models.IndexEntry) error {
	_, err := coll.UpdateOne(ctx,
		bson.M{"_id": docID},
		bson.M{"$set": bson.M{field: e}},
		options.Update().SetUpsert(true))
	return mapErr(err, coll.Name(), docID)
}

func unsetEntry(ctx context.Context, coll *mongo.Collection, docID, field string) error {
	_, err := coll.UpdateOne(ctx, bson.M{"_id": docID}, bson.M{"$unset": bson.M{field: ""}})
	return mapErr(err, coll.Name(), docID)
}

func (t *tx) PutClubMember(ctx context.Context, clubID, studentID string, e models.IndexEntry) error {
	return putEntry(ctx, t.clubMembers, clubID, "members."+studentID, e)
}

func (t *tx) DeleteClubMember(ctx context.Context, clubID, studentID string) error {
	return unsetEntry(ctx, t.clubMembers, clubID, "members."+studentID)
}

func (t *tx) PutStudentClub(ctx context.Context, studentID, clubID string, e models.IndexEntry) error {
	return putEntry(ctx, t.studentClubs, studentID, "clubs."+clubID, e)
}

func (t *tx) DeleteStudentClub(ctx context.Context, studentID, clubID string) error {
	return unsetEntry(ctx, t.studentClubs, studentID, "clubs."+clubID)
}

func (t *tx) AddMemberCount(ctx context.Context, clubID string, delta int) error {
	// Pipeline update so the floor at zero is applied server-side.
	update := mongo.Pipeline{{{Key: "$set", Value: bson.M{
		"member_count": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$member_count", 0}}, delta}}}},
	}}}}
	res, err := t.clubs.UpdateOne(ctx, bson.M{"_id": clubID}, update)
	if err != nil {
		return mapErr(err, "club", clubID)
	}
	if res.MatchedCount == 0 {
		return docstore.NotFound("club", clubID)
	}
	return nil
}

func (t *tx) SetMemberCount(ctx context.Context, clubID string, n int) error {
	if n < 0 {
		n = 0
	}
	res, err := t.clubs.UpdateOne(ctx, bson.M{"_id": clubID}, bson.M{"$set": bson.M{"member_count": n}})
	if err != nil {
		return mapErr(err, "club", clubID)
	}
	if res.MatchedCount == 0 {
		return docstore.NotFound("club", clubID)
	}
	return nil
}

func (t *tx) DeleteClub(ctx context.Context, id string) error {
	res, err := t.clubs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "club", id)
	}
	if res.DeletedCount == 0 {
		return docstore.NotFound("club", id)
	}
	_, err = t.clubMembers.DeleteOne(ctx, bson.M{"_id": id})
	return mapErr(err, "club_members", id)
}

func (t *tx) DeleteStudent(ctx context.Context, id string) error {
	res, err := t.students.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr(err, "student", id)
	}
	if res.DeletedCount == 0 {
		return docstore.NotFound("student", id)
	}
	_, err = t.studentClubs.DeleteOne(ctx, bson.M{"_id": id})
	return mapErr(err, "student_memberships", id)
}
