// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/clubhouse/internal/app/store/docstore/memdoc"
	"github.com/dalemusser/clubhouse/internal/app/store/docstore/mongodoc"
	"github.com/dalemusser/clubhouse/internal/app/system/indexes"
	"github.com/dalemusser/clubhouse/internal/app/system/pairlock"
	"github.com/dalemusser/clubhouse/internal/app/system/timeouts"
	"github.com/dalemusser/clubhouse/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured document store and, when redis_url is
// set, the Redis client used for membership locks.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("overrides", n))
	}

	var deps DBDeps

	switch appCfg.Backend {
	case BackendMemory:
		logger.Info("using in-memory document store")
		deps.Store = memdoc.New()
	default:
		client, err := connectMongo(ctx, appCfg, logger)
		if err != nil {
			return DBDeps{}, err
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		deps.Store = mongodoc.New(deps.MongoDatabase, logger)
	}

	if appCfg.RedisURL != "" {
		pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
		defer cancel()
		rdb, err := pairlock.Dial(pctx, appCfg.RedisURL)
		if err != nil {
			if deps.MongoClient != nil {
				_ = deps.MongoClient.Disconnect(ctx)
			}
			return DBDeps{}, err
		}
		logger.Info("membership locks backed by redis")
		deps.Redis = rdb
	}

	return deps, nil
}

func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	cctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))
	return client, nil
}

// EnsureSchema installs collection validators and indexes. Both are
// idempotent. The memory backend has no schema.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
