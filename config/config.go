package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once at boot.
type Config struct {
	Port         string
	SupabaseURL  string
	SupabaseKey  string
	AIServiceURL string

	// Matching policy.
	SimilarityThreshold float64
	MinGapSeconds       float64

	// Render policy.
	FrameWidth    int
	FrameHeight   int
	RenderTimeout time.Duration

	// Background worker pool.
	MaxWorkers   int
	JobQueueSize int
}

// Load reads configuration from the environment, with a .env file as
// fallback for local development.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:                getEnv("PORT", "8080"),
		SupabaseURL:         getEnv("SUPABASE_URL", "http://localhost:54321"),
		SupabaseKey:         os.Getenv("SUPABASE_SERVICE_KEY"),
		AIServiceURL:        getEnv("AI_SERVICE_URL", "http://localhost:9090"),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.75),
		MinGapSeconds:       getEnvFloat("MIN_GAP_SECONDS", 5.0),
		FrameWidth:          getEnvInt("FRAME_WIDTH", 720),
		FrameHeight:         getEnvInt("FRAME_HEIGHT", 1280),
		RenderTimeout:       getEnvDuration("RENDER_TIMEOUT", 10*time.Minute),
		MaxWorkers:          getEnvInt("MAX_WORKERS", 4),
		JobQueueSize:        getEnvInt("JOB_QUEUE_SIZE", 64),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
