package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"motoreg/models"
	"motoreg/store"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

var AppConfig Config

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
}

// Enabled reports whether status notifications can be mailed.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.FromEmail != ""
}

type Config struct {
	Environment    string `json:"environment"`
	ServerPort     string `json:"server_port"`
	LogLevel       string `json:"log_level"`
	StoreBackend   string `json:"store_backend"`
	DatabaseURL    string `json:"-"`
	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis            RedisConfig `json:"redis"`
	RateLimitEnabled bool        `json:"rate_limit_enabled"`
	RateLimitMax     int         `json:"rate_limit_max"`

	JWTSecret             string   `json:"-"`
	// PlatformContextHeader names a header carrying an identity the hosting
	// platform has already verified, admin role included. Only set it when a
	// proxy strips that header from client requests; otherwise any client
	// can claim admin scope.
	PlatformContextHeader string   `json:"platform_context_header"`
	AdminEmails           []string `json:"admin_emails"`
	AdminRole             string   `json:"admin_role"`
	CORSOrigins           []string `json:"cors_origins"`
	SentryDSN             string   `json:"-"`

	// Seed values for the registration settings, used only when the store has none.
	RegistrationOpen     bool       `json:"registration_open"`
	MaxTeams             *int       `json:"max_teams"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`

	SMTP SMTPConfig `json:"smtp"`
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// DefaultSettings is the registration settings seed described by the config.
func (c Config) DefaultSettings() models.RegistrationSettings {
	return models.RegistrationSettings{
		ID:                   models.SettingsID,
		RegistrationOpen:     c.RegistrationOpen,
		RegistrationDeadline: c.RegistrationDeadline,
		MaxTeams:             c.MaxTeams,
	}
}

func LoadConfig() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return err
	}
	AppConfig = cfg
	logConfig(cfg)
	return nil
}

func fromEnv() (Config, error) {
	cfg := Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", "")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "motoreg"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "motoreg:"),
		},
		RateLimitEnabled:      getEnvAsBool("RATE_LIMIT_ENABLED", false),
		RateLimitMax:          getEnvAsInt("RATE_LIMIT_MAX", 60),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		PlatformContextHeader: getEnv("PLATFORM_CONTEXT_HEADER", ""),
		AdminEmails:           getEnvAsList("ADMIN_EMAILS"),
		AdminRole:             getEnv("ADMIN_ROLE", "admin"),
		CORSOrigins:           getEnvAsList("CORS_ORIGINS"),
		SentryDSN:             getEnv("SENTRY_DSN", ""),
		RegistrationOpen:      getEnvAsBool("REGISTRATION_OPEN", true),
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromName:  getEnv("FROM_NAME", "Motoreg"),
			FromEmail: getEnv("FROM_EMAIL", ""),
		},
	}

	if cfg.StoreBackend == "" {
		cfg.StoreBackend = BackendPostgres
	}
	if v := getEnv("MAX_TEAMS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("MAX_TEAMS must be a non-negative integer")
		}
		cfg.MaxTeams = &n
	}
	if v := getEnv("REGISTRATION_DEADLINE", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Config{}, fmt.Errorf("REGISTRATION_DEADLINE must be RFC3339: %w", err)
		}
		t = t.UTC()
		cfg.RegistrationDeadline = &t
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" && c.DBPassword == "" {
			return fmt.Errorf("DATABASE_URL or DB_PASSWORD is required for the postgres backend")
		}
	case BackendRedis:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.RateLimitEnabled && c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	return nil
}

// DSN returns DATABASE_URL or a key/value DSN built from the DB_* settings.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBSSLMode,
	)
}

// ConnectDB opens postgres and migrates the record tables.
func ConnectDB(cfg Config) (*gorm.DB, error) {
	logrus.Info("Attempting to connect to database...")
	dsn := cfg.DSN()
	logrus.WithField("dsn", maskPassword(dsn)).Debug("Using connection string")

	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.IsProduction() {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Warn)
	}
	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	logrus.Info("Successfully connected to the database")

	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	logrus.Info("Database migration completed")
	return db, nil
}

// ConnectRedis opens a client and checks it with PING.
func ConnectRedis(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logrus.WithField("address", cfg.Address).Info("Successfully connected to redis")
	return client, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig(c Config) {
	logrus.WithFields(logrus.Fields{
		"environment":       c.Environment,
		"server_port":       c.ServerPort,
		"store_backend":     c.StoreBackend,
		"rate_limit":        c.RateLimitEnabled,
		"admin_emails":      len(c.AdminEmails),
		"smtp_enabled":      c.SMTP.Enabled(),
		"registration_open": c.RegistrationOpen,
	}).Info("Loaded configuration")

	if c.PlatformContextHeader != "" {
		logrus.WithField("header", c.PlatformContextHeader).
			Warn("Trusting platform identity header; it must be stripped from client requests upstream")
	}
}
