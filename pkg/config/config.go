package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Storage       StorageConfig
	GCP           GCPConfig
	GCS           GCSConfig
	S3            S3Config
	Uploads       UploadsConfig
	Catalog       CatalogConfig
	Maintenance   MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"MEDREC_APP_ENV" required:"true"`
	Port          string `envconfig:"MEDREC_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"MEDREC_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"MEDREC_LOG_WARN_STACK" default:"false"`
	PublicBaseURL string `envconfig:"MEDREC_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	CORSOrigins   string `envconfig:"MEDREC_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	parts := strings.Split(a.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type DBConfig struct {
	DSN    string `envconfig:"MEDREC_DB_DSN"`
	Driver string `envconfig:"MEDREC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEDREC_DB_HOST"`
	LegacyPort     int    `envconfig:"MEDREC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEDREC_DB_USER"`
	LegacyPassword string `envconfig:"MEDREC_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEDREC_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEDREC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEDREC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEDREC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEDREC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEDREC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"MEDREC_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEDREC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEDREC_REDIS_ADDR"`
	Password     string        `envconfig:"MEDREC_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEDREC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEDREC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEDREC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEDREC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEDREC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEDREC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MEDREC_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MEDREC_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MEDREC_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"MEDREC_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	MinLength        int `envconfig:"MEDREC_PASSWORD_MIN_LENGTH" default:"8"`
	ArgonMemoryKB    int `envconfig:"MEDREC_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MEDREC_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MEDREC_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MEDREC_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MEDREC_ARGON_KEY_LEN" default:"32"`
}

type PasswordResetConfig struct {
	TTL         time.Duration `envconfig:"MEDREC_PASSWORD_RESET_TTL" default:"1h"`
	FrontendURL string        `envconfig:"MEDREC_PASSWORD_RESET_FRONTEND_URL" default:"http://localhost:3000/reset-password"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MEDREC_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MEDREC_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MEDREC_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MEDREC_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MEDREC_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MEDREC_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"MEDREC_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"MEDREC_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"MEDREC_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MEDREC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MEDREC_AUTO_MIGRATE" default:"false"`
	SeedSample  bool `envconfig:"MEDREC_SEED_SAMPLE_MEDICINES" default:"false"`
}

type StorageConfig struct {
	Driver        string `envconfig:"MEDREC_STORAGE_DRIVER" default:"fs"`
	FSRoot        string `envconfig:"MEDREC_STORAGE_FS_ROOT" default:"./media"`
	PublicBaseURL string `envconfig:"MEDREC_STORAGE_PUBLIC_BASE_URL"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MEDREC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MEDREC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MEDREC_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"MEDREC_GCS_BUCKET_NAME"`
	DownloadURLExpiry time.Duration `envconfig:"MEDREC_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type S3Config struct {
	Bucket          string        `envconfig:"MEDREC_S3_BUCKET"`
	Region          string        `envconfig:"MEDREC_S3_REGION" default:"us-east-1"`
	Endpoint        string        `envconfig:"MEDREC_S3_ENDPOINT"`
	AccessKeyID     string        `envconfig:"MEDREC_S3_ACCESS_KEY_ID"`
	SecretAccessKey string        `envconfig:"MEDREC_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool          `envconfig:"MEDREC_S3_USE_PATH_STYLE" default:"false"`
	PresignExpiry   time.Duration `envconfig:"MEDREC_S3_PRESIGN_EXPIRY" default:"1h"`
}

type UploadsConfig struct {
	MaxUploadMB int `envconfig:"MEDREC_MAX_UPLOAD_MB" default:"10"`
}

// MaxBytes converts the configured upload limit to bytes.
func (u UploadsConfig) MaxBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(u.MaxUploadMB) << 20
}

// MaintenanceConfig drives the background worker that retries failed
// recognitions and enforces upload retention.
type MaintenanceConfig struct {
	Interval      time.Duration `envconfig:"MEDREC_MAINTENANCE_INTERVAL" default:"10m"`
	LockTTL       time.Duration `envconfig:"MEDREC_MAINTENANCE_LOCK_TTL" default:"30m"`
	RetryAfter    time.Duration `envconfig:"MEDREC_INFERENCE_RETRY_AFTER" default:"5m"`
	RetryBatch    int           `envconfig:"MEDREC_INFERENCE_RETRY_BATCH" default:"50"`
	RetentionDays int           `envconfig:"MEDREC_UPLOAD_RETENTION_DAYS" default:"0"`
	PurgeBatch    int           `envconfig:"MEDREC_UPLOAD_PURGE_BATCH" default:"200"`
}

type CatalogConfig struct {
	SearchDefaultLimit int `envconfig:"MEDREC_CATALOG_SEARCH_DEFAULT_LIMIT" default:"20"`
	SearchMaxLimit     int `envconfig:"MEDREC_CATALOG_SEARCH_MAX_LIMIT" default:"50"`
}

func (s StorageConfig) validate(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverFS:
		if strings.TrimSpace(s.FSRoot) == "" {
			return fmt.Errorf("%s is required for the fs storage driver", EnvStorageFSRoot)
		}
	case StorageDriverGCS:
		if cfg.GCS.BucketName == "" || cfg.GCP.ProjectID == "" {
			return fmt.Errorf("%s and %s are required for the gcs storage driver", EnvGCSBucket, EnvGCPProjectID)
		}
	case StorageDriverS3:
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("%s is required for the s3 storage driver", EnvS3Bucket)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, s.Driver)
	}
	return nil
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = "sqlite"
		if db.DSN == "" {
			db.DSN = "file:medrec.db?cache=shared"
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
