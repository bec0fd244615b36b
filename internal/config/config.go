package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	NATSSubjectBase    string
	JWTSecret          string
	CourseConfigPath   string
	SummaryCacheTTL    time.Duration
	SyncRetryAttempts  int
	SyncRetryBaseDelay time.Duration
	SyncCallTimeout    time.Duration
	GradebookBaseURL   string
	GradebookEmail     string
	GradebookPassword  string
	AssessmentBaseURL  string
	AssessmentAPIToken string
	ResponsesBaseURL   string
	ResponsesUsername  string
	ResponsesPassword  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADEHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GradeHub API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject_base", "gradehub.sync")
	v.SetDefault("course_config_path", "courses.json")
	v.SetDefault("summary.cache_ttl", "5m")
	v.SetDefault("sync.retry_attempts", 3)
	v.SetDefault("sync.retry_base_delay", "500ms")
	v.SetDefault("sync.call_timeout", "60s")

	ttlString := v.GetString("summary.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid summary cache ttl: %w", err)
	}

	baseDelay, err := time.ParseDuration(v.GetString("sync.retry_base_delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid sync retry base delay: %w", err)
	}

	callTimeout, err := time.ParseDuration(v.GetString("sync.call_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid sync call timeout: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		NATSSubjectBase:    v.GetString("nats.subject_base"),
		JWTSecret:          v.GetString("jwt.secret"),
		CourseConfigPath:   v.GetString("course_config_path"),
		SummaryCacheTTL:    ttl,
		SyncRetryAttempts:  v.GetInt("sync.retry_attempts"),
		SyncRetryBaseDelay: baseDelay,
		SyncCallTimeout:    callTimeout,
		GradebookBaseURL:   v.GetString("gradebook.base_url"),
		GradebookEmail:     v.GetString("gradebook.email"),
		GradebookPassword:  v.GetString("gradebook.password"),
		AssessmentBaseURL:  v.GetString("assessment.base_url"),
		AssessmentAPIToken: v.GetString("assessment.api_token"),
		ResponsesBaseURL:   v.GetString("responses.base_url"),
		ResponsesUsername:  v.GetString("responses.username"),
		ResponsesPassword:  v.GetString("responses.password"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.SyncRetryAttempts <= 0 {
		cfg.SyncRetryAttempts = 3
	}

	return cfg, nil
}
