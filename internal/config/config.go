package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App       *AppConfig       `yaml:"app"`
	Database  *DatabaseConfig  `yaml:"database"`
	Redis     *RedisConfig     `yaml:"redis"`
	SMS       *SMSConfig       `yaml:"sms"`
	Push      *PushConfig      `yaml:"push"`
	WebSocket *WebSocketConfig `yaml:"websocket"`
	Security  *SecurityConfig  `yaml:"security"`
	Reconcile *ReconcileConfig `yaml:"reconcile"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	// Timezone is the reference timezone for date-only comparisons such as
	// "departure date must not be in the past".
	Timezone string `yaml:"timezone"`
	Language string `yaml:"language"`
	Currency string `yaml:"currency"`
}

type DatabaseConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	MaxPoolSize    int           `yaml:"max_pool_size"`
	MinPoolSize    int           `yaml:"min_pool_size"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SocketTimeout  time.Duration `yaml:"socket_timeout"`
}

type RedisConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type SMSConfig struct {
	Provider         string `yaml:"provider"` // twilio, aws_sns
	TwilioAccountSID string `yaml:"twilio_account_sid"`
	TwilioAuthToken  string `yaml:"twilio_auth_token"`
	TwilioFromNumber string `yaml:"twilio_from_number"`
	AWSRegion        string `yaml:"aws_region"`
}

type PushConfig struct {
	Enabled             bool   `yaml:"enabled"`
	FCMCredentialsFile  string `yaml:"fcm_credentials_file"`
	APNSKeyFile         string `yaml:"apns_key_file"`
	APNSKeyID           string `yaml:"apns_key_id"`
	APNSTeamID          string `yaml:"apns_team_id"`
	APNSTopic           string `yaml:"apns_topic"`
	APNSProduction      bool   `yaml:"apns_production"`
}

type WebSocketConfig struct {
	Enabled        bool `yaml:"enabled"`
	ReadBufferSize int  `yaml:"read_buffer_size"`
}

type SecurityConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"`
	JWTAccessTokenTTL  time.Duration `yaml:"jwt_access_token_ttl"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	TrustedProxies     []string      `yaml:"trusted_proxies"`
}

type ReconcileConfig struct {
	// DashboardInterval is the periodic sweep for trips with open bookings.
	DashboardInterval time.Duration `yaml:"dashboard_interval"`
	// ListingInterval is the slower sweep covering public trip listings.
	ListingInterval time.Duration `yaml:"listing_interval"`
	// ActionCooldown absorbs rapid repeated clicks on the same mutation.
	ActionCooldown time.Duration `yaml:"action_cooldown"`
	// DeletionWindow / DeletionLimit parameterize the trip deletion abuse
	// control: DeletionLimit deletions within DeletionWindow suspend the
	// driver.
	DeletionWindow time.Duration `yaml:"deletion_window"`
	DeletionLimit  int           `yaml:"deletion_limit"`
}

func Load() (*Config, error) {
	config := &Config{
		App:       loadAppConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		SMS:       loadSMSConfig(),
		Push:      loadPushConfig(),
		WebSocket: loadWebSocketConfig(),
		Security:  loadSecurityConfig(),
		Reconcile: loadReconcileConfig(),
	}

	return config, nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "abride"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "localhost"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Timezone:    getEnv("APP_TIMEZONE", "Africa/Algiers"),
		Language:    getEnv("APP_LANGUAGE", "fr"),
		Currency:    getEnv("APP_CURRENCY", "DZD"),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:       getEnv("MONGODB_DATABASE", "abride"),
		MaxPoolSize:    getEnvAsInt("MONGODB_MAX_POOL_SIZE", 100),
		MinPoolSize:    getEnvAsInt("MONGODB_MIN_POOL_SIZE", 5),
		ConnectTimeout: getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
		SocketTimeout:  getEnvAsDuration("MONGODB_SOCKET_TIMEOUT", 30*time.Second),
	}
}

func loadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:         getEnv("REDIS_HOST", "localhost"),
		Port:         getEnvAsInt("REDIS_PORT", 6379),
		Password:     getEnv("REDIS_PASSWORD", ""),
		DB:           getEnvAsInt("REDIS_DB", 0),
		PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func loadSMSConfig() *SMSConfig {
	return &SMSConfig{
		Provider:         getEnv("SMS_PROVIDER", "twilio"),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		AWSRegion:        getEnv("AWS_REGION", "eu-west-3"),
	}
}

func loadPushConfig() *PushConfig {
	return &PushConfig{
		Enabled:            getEnvAsBool("PUSH_ENABLED", false),
		FCMCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),
		APNSKeyFile:        getEnv("APNS_KEY_FILE", ""),
		APNSKeyID:          getEnv("APNS_KEY_ID", ""),
		APNSTeamID:         getEnv("APNS_TEAM_ID", ""),
		APNSTopic:          getEnv("APNS_TOPIC", "dz.abride.app"),
		APNSProduction:     getEnvAsBool("APNS_PRODUCTION", false),
	}
}

func loadWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		Enabled:        getEnvAsBool("WEBSOCKET_ENABLED", true),
		ReadBufferSize: getEnvAsInt("WEBSOCKET_READ_BUFFER_SIZE", 1024),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTAccessTokenTTL:  getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", nil),
	}
}

func loadReconcileConfig() *ReconcileConfig {
	return &ReconcileConfig{
		DashboardInterval: getEnvAsDuration("RECONCILE_DASHBOARD_INTERVAL", 5*time.Second),
		ListingInterval:   getEnvAsDuration("RECONCILE_LISTING_INTERVAL", 30*time.Second),
		ActionCooldown:    getEnvAsDuration("ACTION_COOLDOWN", 2*time.Second),
		DeletionWindow:    getEnvAsDuration("TRIP_DELETION_WINDOW", 24*time.Hour),
		DeletionLimit:     getEnvAsInt("TRIP_DELETION_LIMIT", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
