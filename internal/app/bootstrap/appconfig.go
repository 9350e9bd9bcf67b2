// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Storage backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// AppConfig holds service-specific configuration for Clubhouse.
//
// Values come from environment variables (CLUBHOUSE_*), configuration
// files, or command-line flags and are loaded in LoadConfig. WAFFLE's
// CoreConfig covers ports, TLS, logging and CORS; everything below is
// specific to this app.
type AppConfig struct {
	// Storage backend: "mongo" or "memory" (demo/tests, data is lost on exit)
	Backend string

	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Flash session cookie
	SessionKey    string // Secret the cookie keys are derived from (must be strong in production)
	SessionName   string // Cookie name (default: clubhouse-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Redis URL for cross-instance pair locks. Blank keeps locks in-process.
	RedisURL string
	LockTTL  time.Duration

	// Index reconciliation worker. Zero disables it.
	ReconcileInterval time.Duration
	ReconcileRepair   bool

	// Per-IP limit on API writes per minute. Zero disables it.
	WriteRateLimit int
	// Take the client IP from X-Real-IP / X-Forwarded-For. Only safe
	// behind a proxy that overwrites those headers.
	TrustProxyHeaders bool

	// POST /api/sample-data. Always off when env=prod.
	EnableSampleData bool
}
