package config

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendS3     = "s3"
	BackendMemory = "memory"

	CompressionZstd = "zstd"
	CompressionGzip = "gzip"
	CompressionNone = "none"
)

const (
	// DraftsKeyPrefix + kind is the durable-store key of a kind's draft collection.
	DraftsKeyPrefix = "drafts:"

	// UnloadSlotSuffix is appended to the collection key for the synchronous unload slot.
	UnloadSlotSuffix = ":unload"
)

func DraftsKey(kind string) string {
	return DraftsKeyPrefix + kind
}

func UnloadSlotKey(kind string) string {
	return DraftsKey(kind) + UnloadSlotSuffix
}
