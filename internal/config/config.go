package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envAWSRegion             = "REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envS3Bucket              = "S3_BUCKET"
	envS3Endpoint            = "S3_ENDPOINT"
	envS3ForcePathStyle      = "S3_FORCE_PATH_STYLE"
	envJWTSecret             = "JWT_SECRET"
	envJWTExpiry             = "JWT_EXPIRY_MINUTES"
	envUploadPartSize        = "UPLOAD_PART_SIZE"
	envUploadPartURLExpiry   = "UPLOAD_PART_URL_EXPIRY"
	envUploadPutURLExpiry    = "UPLOAD_PUT_URL_EXPIRY"
	envUploadPlaybackExpiry  = "UPLOAD_PLAYBACK_URL_EXPIRY"
	envUploadMaxSize         = "UPLOAD_MAX_SIZE"
	envUploadStaleLockAge    = "UPLOAD_STALE_LOCK_AGE"
	envUploadReaperSchedule  = "UPLOAD_REAPER_SCHEDULE"
	envUploadSignRequireLock = "UPLOAD_SIGN_REQUIRE_LOCK"
	envRealtimeHeartbeat     = "REALTIME_HEARTBEAT_INTERVAL"
	envRealtimeMaxLifetime   = "REALTIME_MAX_CONNECTION_LIFETIME"
	envRealtimeBuffer        = "REALTIME_SUBSCRIBER_BUFFER"
	envRedisURL              = "REDIS_URL"
	envMailFrom              = "MAIL_FROM"
	envMailStrategy          = "MAIL_STRATEGY"
	envResendAPIKey          = "RESEND_API_KEY"
	envSendGridAPIKey        = "SENDGRID_API_KEY"
	envAMQPURL               = "AMQP_URL"
	envAMQPQueue             = "AMQP_MAIL_QUEUE"
	envAppBaseURL            = "APP_BASE_URL"
	envAppName               = "APP_NAME"
	envInviteExpiry          = "INVITE_EXPIRY"
	envPasswordResetExpiry   = "PASSWORD_RESET_EXPIRY"
	envLogLevel              = "LOG_LEVEL"
	envLogFormat             = "LOG_FORMAT"
	envLogOutput             = "LOG_OUTPUT"
	envLogFile               = "LOG_FILE"
	envLogMaxSizeMB          = "LOG_MAX_SIZE_MB"
	envLogMaxBackups         = "LOG_MAX_BACKUPS"
	envLogMaxAgeDays         = "LOG_MAX_AGE_DAYS"
	envMetricsEnabled        = "METRICS_ENABLED"
	envProfilingEnabled      = "PROFILING_ENABLED"
)

const (
	defaultServerPort          = "8080"
	defaultServerReadTimeout   = 10 * time.Second
	defaultServerShutdown      = 10 * time.Second
	defaultDBHost              = "localhost"
	defaultDBPort              = 5432
	defaultDBName              = "uplora"
	defaultDBUser              = "uplora_app"
	defaultDBSSLMode           = "disable"
	defaultDBMaxConns          = 25
	defaultDBMinConns          = 5
	defaultJWTExpiry           = 60 * time.Minute
	defaultPartSize            = int64(8 * 1024 * 1024)
	minPartSize                = int64(5 * 1024 * 1024)
	defaultPartURLExpiry       = 10 * time.Minute
	defaultPutURLExpiry        = 15 * time.Minute
	defaultPlaybackURLExpiry   = time.Hour
	defaultMaxUploadSize       = int64(10 * 1024 * 1024 * 1024)
	defaultStaleLockAge        = time.Hour
	defaultReaperSchedule      = "@every 15m"
	defaultHeartbeatInterval   = 25 * time.Second
	defaultMaxConnLifetime     = 4*time.Minute + 30*time.Second
	defaultSubscriberBuffer    = 64
	defaultMailStrategy        = "single"
	defaultAMQPQueue           = "uplora.mail"
	defaultAppBaseURL          = "http://localhost:3000"
	defaultAppName             = "Uplora"
	defaultInviteExpiry        = 7 * 24 * time.Hour
	defaultPasswordResetExpiry = time.Hour
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultLogOutput           = "stdout"
	defaultLogFile             = "logs/uplora.log"
	defaultLogMaxSizeMB        = 100
	defaultLogMaxBackups       = 10
	defaultLogMaxAgeDays       = 7
	minJWTSecretLength         = 32
	minUniqueCharsInSecret     = 16
	minRepeatedCharThreshold   = 4
	maxRepeatedChars           = 2
	errPortRequiredFmt         = "PORT must be set"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set"
	errRegionRequiredFmt       = "REGION must be set"
	errBucketRequiredFmt       = "S3_BUCKET must be set"
	errJWTSecretRequiredFmt    = "JWT_SECRET must be set"
	errJWTSecretMinLengthFmt   = "JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt  = "JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errPartSizeTooSmallFmt     = "UPLOAD_PART_SIZE must be at least %d bytes"
	errDurationNotPositiveFmt  = "%s must be positive"
	errMailStrategyInvalidFmt  = "MAIL_STRATEGY must be one of single, failover, round_robin (got %q)"
	errInvalidConfigurationFmt = "invalid configuration: %w"
	MailStrategySingle         = "single"
	MailStrategyFailover       = "failover"
	MailStrategyRoundRobin     = "round_robin"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	JWT      JWTConfig
	Upload   UploadConfig
	Realtime RealtimeConfig
	Mail     MailConfig
	App      AppConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	ForcePathStyle  bool
}

type JWTConfig struct {
	Secret         string
	ExpiryDuration time.Duration
}

type UploadConfig struct {
	PartSize          int64
	PartURLExpiry     time.Duration
	PutURLExpiry      time.Duration
	PlaybackURLExpiry time.Duration
	MaxSize           int64
	StaleLockAge      time.Duration
	ReaperSchedule    string
	SignRequiresLock  bool
}

type RealtimeConfig struct {
	HeartbeatInterval     time.Duration
	MaxConnectionLifetime time.Duration
	SubscriberBuffer      int
	RedisURL              string
}

type MailConfig struct {
	From           string
	Strategy       string
	ResendAPIKey   string
	SendGridAPIKey string
	AMQPURL        string
	AMQPQueue      string
}

// Enabled reports whether at least one email provider is configured.
func (m MailConfig) Enabled() bool {
	return m.From != "" && (m.ResendAPIKey != "" || m.SendGridAPIKey != "")
}

type AppConfig struct {
	Name                string
	BaseURL             string
	InviteExpiry        time.Duration
	PasswordResetExpiry time.Duration
}

type LogConfig struct {
	Level      string
	Format     string
	Output     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type MetricsConfig struct {
	Enabled bool
	// Profiling exposes /debug/pprof and /debug/memory. Keep it off in production.
	Profiling bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
		},
		Database: LoadDatabase(),
		AWS: AWSConfig{
			Region:          requireEnv(envAWSRegion),
			AccessKeyID:     os.Getenv(envAWSAccessKeyID),
			SecretAccessKey: os.Getenv(envAWSSecretAccessKey),
			Bucket:          requireEnv(envS3Bucket),
			Endpoint:        os.Getenv(envS3Endpoint),
			ForcePathStyle:  getBoolEnv(envS3ForcePathStyle, false),
		},
		JWT: JWTConfig{
			Secret:         requireEnv(envJWTSecret),
			ExpiryDuration: getDurationEnv(envJWTExpiry, defaultJWTExpiry),
		},
		Upload: UploadConfig{
			PartSize:          getInt64Env(envUploadPartSize, defaultPartSize),
			PartURLExpiry:     getDurationEnv(envUploadPartURLExpiry, defaultPartURLExpiry),
			PutURLExpiry:      getDurationEnv(envUploadPutURLExpiry, defaultPutURLExpiry),
			PlaybackURLExpiry: getDurationEnv(envUploadPlaybackExpiry, defaultPlaybackURLExpiry),
			MaxSize:           getInt64Env(envUploadMaxSize, defaultMaxUploadSize),
			StaleLockAge:      getDurationEnv(envUploadStaleLockAge, defaultStaleLockAge),
			ReaperSchedule:    getEnvAllowEmpty(envUploadReaperSchedule, defaultReaperSchedule),
			SignRequiresLock:  getBoolEnv(envUploadSignRequireLock, false),
		},
		Realtime: RealtimeConfig{
			HeartbeatInterval:     getDurationEnv(envRealtimeHeartbeat, defaultHeartbeatInterval),
			MaxConnectionLifetime: getDurationEnv(envRealtimeMaxLifetime, defaultMaxConnLifetime),
			SubscriberBuffer:      getIntEnv(envRealtimeBuffer, defaultSubscriberBuffer),
			RedisURL:              os.Getenv(envRedisURL),
		},
		Mail: LoadMail(),
		App:  LoadApp(),
		Log:  LoadLog(),
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv(envMetricsEnabled, true),
			Profiling: getBoolEnv(envProfilingEnabled, false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv(envDBHost, defaultDBHost),
		Port:     getIntEnv(envDBPort, defaultDBPort),
		Database: getEnv(envDBName, defaultDBName),
		User:     getEnv(envDBUser, defaultDBUser),
		Password: requireEnv(envDBPassword),
		SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
		MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
		MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
	}
}

func LoadMail() MailConfig {
	return MailConfig{
		From:           os.Getenv(envMailFrom),
		Strategy:       strings.ToLower(getEnv(envMailStrategy, defaultMailStrategy)),
		ResendAPIKey:   os.Getenv(envResendAPIKey),
		SendGridAPIKey: os.Getenv(envSendGridAPIKey),
		AMQPURL:        os.Getenv(envAMQPURL),
		AMQPQueue:      getEnv(envAMQPQueue, defaultAMQPQueue),
	}
}

func LoadApp() AppConfig {
	return AppConfig{
		Name:                getEnv(envAppName, defaultAppName),
		BaseURL:             strings.TrimRight(getEnv(envAppBaseURL, defaultAppBaseURL), "/"),
		InviteExpiry:        getDurationEnv(envInviteExpiry, defaultInviteExpiry),
		PasswordResetExpiry: getDurationEnv(envPasswordResetExpiry, defaultPasswordResetExpiry),
	}
}

func LoadLog() LogConfig {
	return LogConfig{
		Level:      getEnv(envLogLevel, defaultLogLevel),
		Format:     getEnv(envLogFormat, defaultLogFormat),
		Output:     getEnv(envLogOutput, defaultLogOutput),
		File:       getEnv(envLogFile, defaultLogFile),
		MaxSizeMB:  getIntEnv(envLogMaxSizeMB, defaultLogMaxSizeMB),
		MaxBackups: getIntEnv(envLogMaxBackups, defaultLogMaxBackups),
		MaxAgeDays: getIntEnv(envLogMaxAgeDays, defaultLogMaxAgeDays),
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if c.Database.Password == "" {
		return fmt.Errorf(errDBPasswordRequiredFmt)
	}

	if c.AWS.Region == "" {
		return fmt.Errorf(errRegionRequiredFmt)
	}

	if c.AWS.Bucket == "" {
		return fmt.Errorf(errBucketRequiredFmt)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf(errJWTSecretRequiredFmt)
	}

	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
	}

	if !hasMinimumEntropy(c.JWT.Secret) {
		return fmt.Errorf(errJWTSecretLowEntropyFmt)
	}

	if c.Upload.PartSize < minPartSize {
		return fmt.Errorf(errPartSizeTooSmallFmt, minPartSize)
	}

	durations := map[string]time.Duration{
		envUploadPartURLExpiry: c.Upload.PartURLExpiry,
		envUploadPutURLExpiry:  c.Upload.PutURLExpiry,
		envUploadStaleLockAge:  c.Upload.StaleLockAge,
		envRealtimeHeartbeat:   c.Realtime.HeartbeatInterval,
		envRealtimeMaxLifetime: c.Realtime.MaxConnectionLifetime,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf(errDurationNotPositiveFmt, name)
		}
	}

	switch c.Mail.Strategy {
	case MailStrategySingle, MailStrategyFailover, MailStrategyRoundRobin:
	default:
		return fmt.Errorf(errMailStrategyInvalidFmt, c.Mail.Strategy)
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	if len(charCounts) < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(messages.requiredEnvNotSet(key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
