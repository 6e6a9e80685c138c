package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server      ServerConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Disciplines DisciplineConfig
	Compare     CompareConfig
	Reprocess   ReprocessConfig
	LogLevel    string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	GlobalPrefix string
	FrontendURL  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI                   string
	Database              string
	Timeout               time.Duration
	DocumentsCollection   string
	DisciplinesCollection string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type RateLimitConfig struct {
	Enabled  bool
	RPS      float64
	Burst    int
	UseRedis bool
	Window   time.Duration
}

type DisciplineConfig struct {
	CacheTTL     time.Duration
	CacheBackend string
}

type CompareConfig struct {
	Mode string
}

type ReprocessConfig struct {
	BackendURL   string
	AllowedHosts []string
	Timeout      time.Duration
}

var mongoURIPattern = regexp.MustCompile(`^mongodb(\+srv)?://.+`)

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "")
	viper.SetDefault("PORT", "3011")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("GLOBAL_PREFIX", "api")
	viper.SetDefault("FRONTEND_URL", "http://localhost:3000")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("MONGODB_DOCUMENTS_COLLECTION", "odf_documents")
	viper.SetDefault("MONGODB_DISCIPLINES_COLLECTION", "discipline-settings")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 20)
	viper.SetDefault("RATE_LIMIT_BURST", 40)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("DISCIPLINE_CACHE_TTL", "1h")
	viper.SetDefault("DISCIPLINE_CACHE_BACKEND", "memory")
	viper.SetDefault("COMPARE_MODE", "raw")
	viper.SetDefault("REPROCESS_TIMEOUT", "10s")
	viper.SetDefault("LOG_LEVEL", "info")

	port := viper.GetString("SERVER_PORT")
	if port == "" {
		port = viper.GetString("PORT")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         port,
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  strings.ToLower(viper.GetString("SERVER_ENVIRONMENT")),
			GlobalPrefix: strings.Trim(viper.GetString("GLOBAL_PREFIX"), "/"),
			FrontendURL:  viper.GetString("FRONTEND_URL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:                   strings.TrimSpace(viper.GetString("MONGODB_URI")),
			Database:              viper.GetString("MONGODB_DATABASE"),
			Timeout:               time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
			DocumentsCollection:   viper.GetString("MONGODB_DOCUMENTS_COLLECTION"),
			DisciplinesCollection: viper.GetString("MONGODB_DISCIPLINES_COLLECTION"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:      viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis: viper.GetBool("RATE_LIMIT_USE_REDIS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		Disciplines: DisciplineConfig{
			CacheTTL:     viper.GetDuration("DISCIPLINE_CACHE_TTL"),
			CacheBackend: strings.ToLower(viper.GetString("DISCIPLINE_CACHE_BACKEND")),
		},
		Compare: CompareConfig{
			Mode: viper.GetString("COMPARE_MODE"),
		},
		Reprocess: ReprocessConfig{
			BackendURL:   viper.GetString("REPROCESS_BACKEND_URL"),
			AllowedHosts: splitList(viper.GetString("REPROCESS_ALLOWED_HOSTS")),
			Timeout:      viper.GetDuration("REPROCESS_TIMEOUT"),
		},
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MongoDB.Database == "" {
		cfg.MongoDB.Database = DatabaseFromURI(cfg.MongoDB.URI)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MongoDB.URI == "" {
		return fmt.Errorf("environment variable MONGODB_URI is required")
	}
	if !mongoURIPattern.MatchString(c.MongoDB.URI) {
		return fmt.Errorf("MONGODB_URI must start with mongodb:// or mongodb+srv://")
	}
	switch c.Server.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("SERVER_ENVIRONMENT must be development, production or test, got %q", c.Server.Environment)
	}
	switch c.Disciplines.CacheBackend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled() {
			return fmt.Errorf("DISCIPLINE_CACHE_BACKEND=redis requires REDIS_HOST")
		}
	default:
		return fmt.Errorf("DISCIPLINE_CACHE_BACKEND must be memory or redis, got %q", c.Disciplines.CacheBackend)
	}
	if c.RateLimit.UseRedis && !c.Redis.Enabled() {
		return fmt.Errorf("RATE_LIMIT_USE_REDIS requires REDIS_HOST")
	}
	if c.Disciplines.CacheTTL <= 0 {
		return fmt.Errorf("DISCIPLINE_CACHE_TTL must be a positive duration")
	}
	return nil
}

// IsDevelopment reports whether development-only surfaces (swagger) are mounted.
func (c *Config) IsDevelopment() bool { return c.Server.Environment == "development" }

// DatabaseFromURI returns the database named in the URI path, or "odf".
func DatabaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "odf"
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		return db
	}
	return "odf"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
