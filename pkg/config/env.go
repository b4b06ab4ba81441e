package config

const (
	EnvPrefix = "MEDREC"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "MEDREC_APP_ENV"
	EnvPort   = "MEDREC_APP_PORT"

	EnvDBDSN  = "MEDREC_DB_DSN"
	EnvDBHost = "MEDREC_DB_HOST"
	EnvDBUser = "MEDREC_DB_USER"
	EnvDBName = "MEDREC_DB_NAME"

	EnvRedisURL = "MEDREC_REDIS_URL"

	EnvJWTSecret              = "MEDREC_JWT_SECRET"
	EnvJWTIssuer              = "MEDREC_JWT_ISSUER"
	EnvJWTExpMins             = "MEDREC_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MEDREC_REFRESH_TOKEN_TTL_MINUTES"

	EnvUseSQLite = "MEDREC_USE_SQLITE"

	EnvStorageDriver = "MEDREC_STORAGE_DRIVER"
	EnvStorageFSRoot = "MEDREC_STORAGE_FS_ROOT"
	EnvGCPProjectID  = "MEDREC_GCP_PROJECT_ID"
	EnvGCSBucket     = "MEDREC_GCS_BUCKET_NAME"
	EnvS3Bucket      = "MEDREC_S3_BUCKET"
	EnvMaxUploadMB   = "MEDREC_MAX_UPLOAD_MB"
)

const (
	StorageDriverFS  = "fs"
	StorageDriverGCS = "gcs"
	StorageDriverS3  = "s3"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
