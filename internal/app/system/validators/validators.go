// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore"
	"github.com/dalemusser/clubhouse/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the club, student, membership and index collections
// and attaches a JSON-Schema validator to each. Servers without collMod
// support (some DocumentDB versions) keep the collections unvalidated.
//
// Collections must exist before the first write: older servers refuse to
// create one implicitly inside a multi-document transaction, which is
// where index documents are first written.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	log := zap.L().Named("validators")

	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var problems []string
	for _, s := range schemas() {
		if !have[s.coll] {
			switch err := db.CreateCollection(ctx, s.coll); {
			case err == nil:
				log.Info("created collection", zap.String("collection", s.coll))
			case commandErr(err, 48, "already exists", "namespace exists"):
			default:
				problems = append(problems, s.coll+": "+err.Error())
				continue
			}
		}
		if err := collMod(ctx, db, s.coll, s.schema); err != nil {
			if commandErr(err, 59, "no such command") || commandErr(err, 115, "not implemented", "not supported") {
				log.Info("validator skipped (unsupported)", zap.String("collection", s.coll))
				continue
			}
			problems = append(problems, s.coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type collSchema struct {
	coll   string
	schema bson.M
}

func schemas() []collSchema {
	return []collSchema{
		{docstore.Clubs, clubsSchema()},
		{docstore.Students, studentsSchema()},
		{docstore.Memberships, membershipsSchema()},
		// Index entries are keyed by id, so only the envelope is checked.
		{docstore.ClubMembers, indexDocSchema("members")},
		{docstore.StudentMemberships, indexDocSchema("clubs")},
	}
}

func collMod(ctx context.Context, db *mongo.Database, coll string, schema bson.M) error {
	return db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: coll},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}).Err()
}

// commandErr matches a server error by code, or by message for drivers
// and proxies that lose the code.
func commandErr(err error, code int32, phrases ...string) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func roleEnum() bson.A {
	out := bson.A{}
	for _, r := range models.Roles {
		out = append(out, string(r))
	}
	return out
}

func clubsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "member_count", "created_at"},
			"properties": bson.M{
				"name":           nonBlank,
				"name_ci":        nonBlank,
				"description":    bson.M{"bsonType": "string"},
				"description_ci": bson.M{"bsonType": "string"},
				"category":       bson.M{"bsonType": "string"},
				"meeting_time":   bson.M{"bsonType": "string"},
				"member_count":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"created_at":     bson.M{"bsonType": "date"},
				"updated_at":     bson.M{"bsonType": "date"},
			},
		},
	}
}

func studentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "email_ci", "created_at"},
			"properties": bson.M{
				"name":           nonBlank,
				"name_ci":        bson.M{"bsonType": "string"},
				"email":          bson.M{"bsonType": "string", "pattern": "^[^@\\s]+@[^@\\s]+$"},
				"email_ci":       bson.M{"bsonType": "string", "pattern": "^[^@\\sA-Z]+@[^@\\sA-Z]+$"},
				"student_number": bson.M{"bsonType": "string"},
				"major":          bson.M{"bsonType": "string"},
				"created_at":     bson.M{"bsonType": "date"},
				"updated_at":     bson.M{"bsonType": "date"},
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"club_id", "student_id", "role", "join_date"},
			"properties": bson.M{
				"club_id":    nonBlank,
				"student_id": nonBlank,
				"role":       bson.M{"enum": roleEnum()},
				"join_date":  bson.M{"bsonType": "date"},
			},
		},
	}
}

func indexDocSchema(field string) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				field: bson.M{"bsonType": "object"},
			},
		},
	}
}
