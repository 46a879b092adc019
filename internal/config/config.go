// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashiqtasdid/pegasus-sub000/internal/builder"
)

type Config struct {
	Env       string
	LogLevel  string
	LogFormat string
	LLM       LLMConfig
	Build     BuildConfig
	Fix       FixConfig
	Store     StoreConfig
	Artifact  ArtifactConfig
	Server    ServerConfig
}

type LLMConfig struct {
	Provider      string // openai | gemini | fake
	Model         string
	APIKey        string
	BaseURL       string
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration
	RPS           float64
	Burst         int
	RetryAttempts int
	RetryDelay    time.Duration
}

type BuildConfig struct {
	Command []string
	Timeout time.Duration
}

type FixConfig struct {
	MaxIterations         int
	MaxConcurrentSessions int
}

type StoreConfig struct {
	ProjectsRoot string
	DatabaseURL  string
	StatePath    string
	CacheSize    int
}

type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Dir       string
	BaseURL   string
}

// S3Enabled reports whether artifacts go to an S3 compatible endpoint
// instead of the local directory.
func (a ArtifactConfig) S3Enabled() bool { return a.Endpoint != "" }

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Load reads .env (a missing file is fine) and then the environment.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)
	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	root := firstNonEmpty(env("PROJECTS_ROOT"), "generated")
	return &Config{
		Env:       firstNonEmpty(env("APP_ENV"), "local"),
		LogLevel:  firstNonEmpty(env("LOG_LEVEL"), "info"),
		LogFormat: firstNonEmpty(env("LOG_FORMAT"), "text"),
		LLM:       loadLLMConfig(),
		Build: BuildConfig{
			Command: builder.ParseCommand(env("BUILD_COMMAND")),
			Timeout: envDuration("BUILD_TIMEOUT", builder.DefaultTimeout),
		},
		Fix: FixConfig{
			MaxIterations:         envInt("MAX_FIX_ITERATIONS", 5),
			MaxConcurrentSessions: envInt("MAX_CONCURRENT_SESSIONS", 4),
		},
		Store: StoreConfig{
			ProjectsRoot: root,
			DatabaseURL:  firstNonEmpty(env("DATABASE_URL"), env("PROJECT_STORE_PG_DSN")),
			StatePath:    firstNonEmpty(env("PROJECT_STORE_PATH"), root+"/.pegasus/projects.json"),
			CacheSize:    envInt("PROJECT_CACHE_SIZE", 1024),
		},
		Artifact: ArtifactConfig{
			Endpoint:  env("ARTIFACT_S3_ENDPOINT"),
			Region:    firstNonEmpty(env("ARTIFACT_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(env("ARTIFACT_S3_BUCKET"), "pegasus-artifacts"),
			UseSSL:    envBool("ARTIFACT_S3_USE_SSL", true),
			Dir:       firstNonEmpty(env("ARTIFACT_DIR"), "artifacts"),
			BaseURL:   env("ARTIFACT_BASE_URL"),
		},
		Server: ServerConfig{
			Addr:            listenAddr(firstNonEmpty(env("PORT"), "8080")),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:  envList("ALLOWED_ORIGINS"),
		},
	}
}

func loadLLMConfig() LLMConfig {
	c := LLMConfig{
		Provider:      strings.ToLower(env("LLM_PROVIDER")),
		Model:         env("LLM_MODEL"),
		BaseURL:       env("LLM_BASE_URL"),
		Temperature:   float32(envFloat("LLM_TEMPERATURE", 0.2)),
		MaxTokens:     envInt("LLM_MAX_TOKENS", 8192),
		Timeout:       envDuration("LLM_TIMEOUT", 180*time.Second),
		RPS:           envFloat("LLM_RPS", 0),
		Burst:         envInt("LLM_BURST", 1),
		RetryAttempts: envInt("LLM_RETRY_ATTEMPTS", 3),
		RetryDelay:    envDuration("LLM_RETRY_DELAY", 500*time.Millisecond),
	}
	gemini := firstNonEmpty(env("GEMINI_API_KEY"), env("GOOGLE_API_KEY"))
	openai := firstNonEmpty(env("OPENAI_API_KEY"), env("OPENROUTER_API_KEY"), env("GROQ_API_KEY"))
	if c.Provider == "" {
		switch {
		case openai != "":
			c.Provider = "openai"
		case gemini != "":
			c.Provider = "gemini"
		default:
			c.Provider = "fake"
		}
	}
	switch c.Provider {
	case "gemini":
		c.APIKey = firstNonEmpty(env("LLM_API_KEY"), gemini)
		c.Model = firstNonEmpty(c.Model, "gemini-2.5-flash")
	case "openai":
		c.APIKey = firstNonEmpty(env("LLM_API_KEY"), openai)
		c.Model = firstNonEmpty(c.Model, "gpt-4o-mini")
		if c.BaseURL == "" {
			switch {
			case env("OPENROUTER_API_KEY") != "" && env("OPENAI_API_KEY") == "":
				c.BaseURL = "https://openrouter.ai/api/v1"
			case env("GROQ_API_KEY") != "" && env("OPENAI_API_KEY") == "":
				c.BaseURL = "https://api.groq.com/openai/v1"
			}
		}
	}
	return c
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("config: %s provider needs an api key", c.LLM.Provider)
		}
	case "fake":
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q (want openai, gemini or fake)", c.LLM.Provider)
	}
	if c.Fix.MaxIterations < 1 {
		return fmt.Errorf("config: MAX_FIX_ITERATIONS must be at least 1")
	}
	if c.Fix.MaxConcurrentSessions < 1 {
		return fmt.Errorf("config: MAX_CONCURRENT_SESSIONS must be at least 1")
	}
	if c.Build.Timeout <= 0 {
		return fmt.Errorf("config: BUILD_TIMEOUT must be positive")
	}
	if c.Store.ProjectsRoot == "" {
		return fmt.Errorf("config: PROJECTS_ROOT is empty")
	}
	return nil
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(env(key))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(env(key), 64)
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(env(key))
	if err != nil {
		return def
	}
	return v
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	raw := env(key)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(env(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
