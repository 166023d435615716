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
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Counts        CountsConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COUNTSHEET_APP_ENV" required:"true"`
	Port         string `envconfig:"COUNTSHEET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COUNTSHEET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COUNTSHEET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COUNTSHEET_DB_DSN"`
	Driver string `envconfig:"COUNTSHEET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"COUNTSHEET_DB_HOST"`
	Port     int    `envconfig:"COUNTSHEET_DB_PORT" default:"5432"`
	User     string `envconfig:"COUNTSHEET_DB_USER"`
	Password string `envconfig:"COUNTSHEET_DB_PASSWORD"`
	Name     string `envconfig:"COUNTSHEET_DB_NAME"`
	SSLMode  string `envconfig:"COUNTSHEET_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"COUNTSHEET_SQLITE_PATH" default:"countsheet.db"`

	MaxOpenConns    int           `envconfig:"COUNTSHEET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COUNTSHEET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COUNTSHEET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COUNTSHEET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"COUNTSHEET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COUNTSHEET_REDIS_ADDR"`
	Password     string        `envconfig:"COUNTSHEET_REDIS_PASSWORD"`
	DB           int           `envconfig:"COUNTSHEET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COUNTSHEET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COUNTSHEET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COUNTSHEET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COUNTSHEET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COUNTSHEET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"COUNTSHEET_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"COUNTSHEET_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"COUNTSHEET_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"COUNTSHEET_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COUNTSHEET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COUNTSHEET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COUNTSHEET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COUNTSHEET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COUNTSHEET_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow    time.Duration `envconfig:"COUNTSHEET_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUserLimit int           `envconfig:"COUNTSHEET_AUTH_RATE_LIMIT_LOGIN_USER_LIMIT" default:"5"`
	LoginIPLimit   int           `envconfig:"COUNTSHEET_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COUNTSHEET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COUNTSHEET_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"COUNTSHEET_CORS_ORIGINS" default:"http://localhost:3000"`
}

// CountsConfig tunes the upload, load and count-entry paths.
type CountsConfig struct {
	PageSize        int           `envconfig:"COUNTSHEET_COUNTS_PAGE_SIZE" default:"1000"`
	InsertBatchSize int           `envconfig:"COUNTSHEET_COUNTS_INSERT_BATCH" default:"500"`
	PersistTimeout  time.Duration `envconfig:"COUNTSHEET_COUNTS_PERSIST_TIMEOUT" default:"10s"`
	MaxUploadMB     int           `envconfig:"COUNTSHEET_MAX_UPLOAD_MB" default:"20"`
	WorkspaceTTL    time.Duration `envconfig:"COUNTSHEET_WORKSPACE_TTL" default:"12h"`
}

// MaxUploadBytes converts the upload cap into bytes.
func (c CountsConfig) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
