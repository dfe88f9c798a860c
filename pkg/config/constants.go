package config

const (
	EnvPrefix = "PROFILEMEDIA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "PROFILEMEDIA_APP_ENV"
	EnvPort   = "PROFILEMEDIA_APP_PORT"

	EnvDBDSN    = "PROFILEMEDIA_DB_DSN"
	EnvDBDriver = "PROFILEMEDIA_DB_DRIVER"
	EnvDBHost   = "PROFILEMEDIA_DB_HOST"
	EnvDBUser   = "PROFILEMEDIA_DB_USER"
	EnvDBName   = "PROFILEMEDIA_DB_NAME"
	EnvDBPass   = "PROFILEMEDIA_DB_PASSWORD"

	EnvRedisURL = "PROFILEMEDIA_REDIS_URL"

	EnvJWTSecret  = "PROFILEMEDIA_JWT_SECRET"
	EnvJWTIssuer  = "PROFILEMEDIA_JWT_ISSUER"
	EnvJWTExpMins = "PROFILEMEDIA_JWT_EXPIRATION_MINUTES"

	EnvOutboxMaxAttempts = "PROFILEMEDIA_OUTBOX_MAX_ATTEMPTS"

	EnvStorageDriver = "PROFILEMEDIA_STORAGE_DRIVER"
	EnvLocalRoot     = "PROFILEMEDIA_LOCAL_STORAGE_ROOT"
	EnvS3Bucket      = "PROFILEMEDIA_S3_BUCKET"
	EnvS3Region      = "PROFILEMEDIA_S3_REGION"

	EnvGCPProjectID     = "PROFILEMEDIA_GCP_PROJECT_ID"
	EnvPubSubMediaTopic = "PROFILEMEDIA_PUBSUB_MEDIA_TOPIC"
	EnvPubSubCleanupSub = "PROFILEMEDIA_PUBSUB_BLOB_CLEANUP_SUBSCRIPTION"

	EnvMediaImageMaxMB = "PROFILEMEDIA_MEDIA_IMAGE_MAX_MB"
	EnvMediaAudioMaxMB = "PROFILEMEDIA_MEDIA_AUDIO_MAX_MB"
	EnvMediaVideoMaxMB = "PROFILEMEDIA_MEDIA_VIDEO_MAX_MB"

	EnvUploadRateLimit  = "PROFILEMEDIA_UPLOAD_RATE_LIMIT_USER"
	EnvUploadRateWindow = "PROFILEMEDIA_UPLOAD_RATE_LIMIT_WINDOW"
	EnvAutoMigrate      = "PROFILEMEDIA_AUTO_MIGRATE"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)
