// Package txn runs a group of MongoDB writes as a single unit.
package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotAtomic wraps failures from the non-transactional fallback path.
// Writes issued before the failure were not rolled back.
var ErrNotAtomic = errors.New("unit of work failed without transaction support; earlier writes were kept")

// Run executes fn inside a transaction on db's client. Deployments that
// cannot run transactions (standalone servers, some DocumentDB setups) get
// fn executed directly; the failure of such a run is wrapped in ErrNotAtomic.
//
// fn may be invoked more than once when the server reports a transient
// transaction error.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if !IsNotSupported(err) {
			return err
		}
		return runDirect(ctx, log, err, fn)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err == nil {
		return nil
	}
	if !IsNotSupported(err) {
		return err
	}
	return runDirect(ctx, log, err, fn)
}

func runDirect(ctx context.Context, log *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Warn("transactions unavailable, running unit of work without one", zap.Error(cause))
	}
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAtomic, err)
	}
	return nil
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transaction numbers only allowed on replica sets
			51,  // legacy illegal operation
			263: // OperationNotSupportedInTransaction
			return true
		}
	}

	s := strings.ToLower(err.Error())
	has := func(sub string) bool { return strings.Contains(s, sub) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
