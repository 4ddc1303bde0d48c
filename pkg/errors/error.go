package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// ConfigParseError represents a failure to parse configuration from the environment.
	ConfigParseError ErrorCode = "config_parse_error"

	// KafkaReadError represents a failure to read a message from Kafka.
	KafkaReadError ErrorCode = "kafka_read_error"
	// KafkaWriteError represents a failure to write a message to Kafka.
	KafkaWriteError ErrorCode = "kafka_write_error"
	// OrderDecodeError represents a malformed inbound order payload.
	OrderDecodeError ErrorCode = "order_decode_error"

	// RedisConfigError represents an error when the Redis configuration is invalid or nil.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisDisconnectionError represents an error when disconnecting from Redis.
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	// RedisPingError represents an error when pinging Redis.
	RedisPingError ErrorCode = "redis_pinging_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"

	// SnapshotMarshalError represents a failure to serialise a snapshot.
	SnapshotMarshalError ErrorCode = "snapshot_marshal_error"
	// SnapshotUnmarshalError represents a failure to deserialise a snapshot.
	SnapshotUnmarshalError ErrorCode = "snapshot_unmarshal_error"
	// SnapshotStoreError represents a failure to persist a snapshot.
	SnapshotStoreError ErrorCode = "snapshot_store_error"
	// SnapshotLoadError represents a failure to load a snapshot.
	SnapshotLoadError ErrorCode = "snapshot_load_error"

	// PebbleOpenError represents a failure to open the Pebble database.
	PebbleOpenError ErrorCode = "pebble_open_error"
	// PebbleGetError represents a failure to read a key from Pebble.
	PebbleGetError ErrorCode = "pebble_get_error"
	// PebbleSetError represents a failure to write a key to Pebble.
	PebbleSetError ErrorCode = "pebble_set_error"
	// PebbleCloseError represents a failure to close the Pebble database.
	PebbleCloseError ErrorCode = "pebble_close_error"
)
