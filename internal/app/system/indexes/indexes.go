// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem shows up in one startup failure.

The unique (club_id, student_id) index on memberships is load-bearing: it is
the compare-and-set that stops two concurrent joins for the same pair from
both committing.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"clubs", ensureClubs},
		{"students", ensureStudents},
		{"memberships", ensureMemberships},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureClubs(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("clubs"), []mongo.IndexModel{
		// List page ordering (name_ci, _id tiebreak)
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_clubs_nameci__id"),
		},
	})
}

func ensureStudents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("students"), []mongo.IndexModel{
		// One student per normalized email
		{
			Keys:    bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_students_emailci"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_students_nameci__id"),
		},
	})
}

func ensureMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("memberships"), []mongo.IndexModel{
		// Exactly one membership per (club, student); role changes update the doc
		{
			Keys:    bson.D{{Key: "club_id", Value: 1}, {Key: "student_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_memberships_club_student"),
		},
		// A student's memberships in join order
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "join_date", Value: 1}},
			Options: options.Index().SetName("idx_memberships_student_join"),
		},
		// A club's memberships in join order (reconciliation)
		{
			Keys:    bson.D{{Key: "club_id", Value: 1}, {Key: "join_date", Value: 1}},
			Options: options.Index().SetName("idx_memberships_club_join"),
		},
	})
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

func sameBoolPtr(a, b *bool) bool { return boolVal(a) == boolVal(b) }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB return IndexOptionsConflict when an index with the same keys
// exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	for _, m := range models {
		if err := ensureIndex(ctx, coll, m); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureIndex(ctx context.Context, coll *mongo.Collection, m mongo.IndexModel) error {
	var name string
	var unique *bool
	if m.Options != nil {
		if m.Options.Name != nil {
			name = *m.Options.Name
		}
		unique = m.Options.Unique
	}
	sig := keySig(m.Keys.(bson.D))
	isUnique := unique != nil && *unique
	start := time.Now()

	log := zap.L().With(
		zap.String("collection", coll.Name()),
		zap.String("name", name),
		zap.String("keys", sig),
		zap.Bool("unique", isUnique))
	log.Info("ensuring index")

	recreate := func(old string) error {
		if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
			log.Warn("drop existing index failed", zap.String("existing", old), zap.Error(err))
			return fmt.Errorf("%s(%s): drop failed: %v", coll.Name(), name, err)
		}
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && isUnique {
				return fmt.Errorf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name)
			}
			return fmt.Errorf("%s(%s): %v", coll.Name(), name, err)
		}
		log.Info("index dropped and recreated", zap.String("took", time.Since(start).String()))
		return nil
	}

	if ex, ok := listIndexes(ctx, coll)[sig]; ok {
		switch {
		case !sameBoolPtr(unique, ex.Unique):
			// Options changed (e.g. upgrading to unique).
			return recreate(ex.Name)
		case name != "" && ex.Name != name:
			log.Info("renaming index to align with desired name", zap.String("from", ex.Name))
			return recreate(ex.Name)
		default:
			log.Info("reusing existing index", zap.String("took", time.Since(start).String()))
			return nil
		}
	}

	created, err := coll.Indexes().CreateOne(ctx, m)
	if err == nil {
		log.Info("index ensured",
			zap.String("created_name", created),
			zap.String("took", time.Since(start).String()))
		return nil
	}
	if isOptionsConflictErr(err) {
		if ex, ok := listIndexes(ctx, coll)[sig]; ok {
			if sameBoolPtr(unique, ex.Unique) {
				log.Info("reusing existing index (post-conflict)", zap.String("existing", ex.Name))
				return nil
			}
			return recreate(ex.Name)
		}
	}
	log.Warn("index ensure failed", zap.String("took", time.Since(start).String()), zap.Error(err))
	return fmt.Errorf("%s(%s): %v", coll.Name(), name, err)
}
