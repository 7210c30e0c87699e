package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// GradeThresholds holds the minimum percentage for each letter grade,
// scanned in descending order. Anything below D is an F.
type GradeThresholds struct {
	A float64
	B float64
	C float64
	D float64
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	// LLMAPIKey is the default provider credential; requests may carry
	// their own key instead.
	LLMAPIKey    string
	LLMBaseURL   string
	GradingModel string
	VisionModel  string
	MaxTokens    int
	Temperature  float64

	DatabaseURL        string
	RedisURL           string
	ExtractionCacheTTL time.Duration

	MaxUploadMB          int
	DigitalTextThreshold int
	RenderDPI            int

	Thresholds GradeThresholds
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
	v.SetEnvPrefix("SMARTGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SmartGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.grading_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.vision_model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("database.url", "smartgrade.db")
	v.SetDefault("extraction.cache_ttl", "10m")
	v.SetDefault("extraction.digital_text_threshold", 50)
	v.SetDefault("extraction.render_dpi", 200)
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("grade.a", 85)
	v.SetDefault("grade.b", 70)
	v.SetDefault("grade.c", 55)
	v.SetDefault("grade.d", 40)

	ttlString := v.GetString("extraction.cache_ttl")
	if ttlString == "" {
		ttlString = "10m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid extraction cache ttl: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		LLMAPIKey:            v.GetString("llm.api_key"),
		LLMBaseURL:           v.GetString("llm.base_url"),
		GradingModel:         v.GetString("llm.grading_model"),
		VisionModel:          v.GetString("llm.vision_model"),
		MaxTokens:            v.GetInt("llm.max_tokens"),
		Temperature:          v.GetFloat64("llm.temperature"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		ExtractionCacheTTL:   ttl,
		MaxUploadMB:          v.GetInt("upload.max_mb"),
		DigitalTextThreshold: v.GetInt("extraction.digital_text_threshold"),
		RenderDPI:            v.GetInt("extraction.render_dpi"),
		Thresholds: GradeThresholds{
			A: v.GetFloat64("grade.a"),
			B: v.GetFloat64("grade.b"),
			C: v.GetFloat64("grade.c"),
			D: v.GetFloat64("grade.d"),
		},
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}

	if cfg.DigitalTextThreshold <= 0 {
		cfg.DigitalTextThreshold = 50
	}

	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 200
	}

	t := cfg.Thresholds
	if !(t.A > t.B && t.B > t.C && t.C > t.D && t.D >= 0) {
		return Config{}, fmt.Errorf("grade thresholds must be strictly descending: A=%v B=%v C=%v D=%v", t.A, t.B, t.C, t.D)
	}

	return cfg, nil
}
