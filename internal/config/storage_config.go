package config

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	AuditSinkLog      = "log"
	AuditSinkPostgres = "postgres"
	AuditSinkBolt     = "bolt"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetDatabaseURL() string
	GetRateLimitBackend() string
	GetRedisURL() string
	GetAuditSink() string
	GetAuditBoltPath() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetStorageBackend() string {
	return GetEnv("STORAGE_BACKEND", BackendMemory)
}

func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

// GetRateLimitBackend selects the counter store. "memory" is per process; run "redis"
// when more than one instance serves traffic.
func (Storage) GetRateLimitBackend() string {
	return GetEnv("RATE_LIMIT_BACKEND", BackendMemory)
}

func (Storage) GetRedisURL() string {
	return GetEnv("REDIS_URL", "redis://localhost:6379/0")
}

func (Storage) GetAuditSink() string {
	return GetEnv("AUDIT_SINK", AuditSinkLog)
}

func (Storage) GetAuditBoltPath() string {
	return GetEnv("AUDIT_BOLT_PATH", "./data/audit.db")
}
