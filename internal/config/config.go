package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"threadlens/internal/analysis"
)

// Config is the process-level configuration for the API server and the
// digest CLI, resolved from environment variables with built-in defaults.
// Request-level overrides are applied later via Engine().
type Config struct {
	Port string
	Env  string

	Provider   string // "ollama" or "gemini"
	OllamaHost string
	GeminiKey  string
	ChatModel  string
	EmbedModel string

	Engine  analysis.Config
	Archive ArchiveConfig

	CacheTTLMinutes int
	CacheMaxEntries int
}

// ArchiveConfig selects where finished analyses are persisted. Disk is always
// on; S3 and Postgres attach when their settings are present.
type ArchiveConfig struct {
	DataDir  string
	TTLHours int

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	PostgresDSN string
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = ":8080"
	} else if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:            port,
		Env:             env,
		Provider:        firstNonEmpty(strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))), "ollama"),
		OllamaHost:      firstNonEmpty(strings.TrimSpace(os.Getenv("OLLAMA_HOST")), "http://localhost:11434"),
		GeminiKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		ChatModel:       firstNonEmpty(strings.TrimSpace(os.Getenv("CHAT_MODEL")), "llama3.1:8b"),
		EmbedModel:      firstNonEmpty(strings.TrimSpace(os.Getenv("EMBED_MODEL")), "nomic-embed-text"),
		Engine:          engineFromEnv(),
		Archive:         archiveFromEnv(),
		CacheTTLMinutes: envInt("RESULT_CACHE_TTL_MINUTES", 30),
		CacheMaxEntries: envInt("RESULT_CACHE_MAX_ENTRIES", 256),
	}
	cfg.Engine.ChatModel = cfg.ChatModel
	cfg.Engine.EmbedModel = cfg.EmbedModel
	return cfg, nil
}

func engineFromEnv() analysis.Config {
	eng := analysis.DefaultConfig()
	eng.TopK = envInt("TOPK", eng.TopK)
	eng.MaxSummaryComments = envInt("MAX_SUMMARY_COMMENTS", eng.MaxSummaryComments)
	eng.MMRLambda = envFloat("MMR_LAMBDA", eng.MMRLambda)
	eng.TokenBudget = envInt("TOKEN_BUDGET", eng.TokenBudget)
	eng.CommentCharBudget = envInt("COMMENT_CHAR_BUDGET", eng.CommentCharBudget)
	if w, ok := parseWeights(os.Getenv("WEIGHTS")); ok {
		eng.Weights = w
	}
	return eng
}

func archiveFromEnv() ArchiveConfig {
	return ArchiveConfig{
		DataDir:     firstNonEmpty(strings.TrimSpace(os.Getenv("DATA_DIR")), "data"),
		TTLHours:    envInt("ARCHIVE_TTL_HOURS", 24),
		S3Endpoint:  strings.TrimSpace(os.Getenv("ARCHIVE_S3_ENDPOINT")),
		S3Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_REGION")), "us-east-1"),
		S3AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		S3SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		S3Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARCHIVE_S3_BUCKET")), "threadlens-archive"),
		S3UseSSL:    envBool("ARCHIVE_S3_USE_SSL", false),
		PostgresDSN: firstNonEmpty(strings.TrimSpace(os.Getenv("DATABASE_URL")), strings.TrimSpace(os.Getenv("POSTGRES_DSN"))),
	}
}

// parseWeights reads a "relevance,novelty,controversy" triple.
func parseWeights(raw string) (analysis.Weights, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 3 {
		return analysis.Weights{}, false
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return analysis.Weights{}, false
		}
		vals[i] = v
	}
	return analysis.Weights{Relevance: vals[0], Novelty: vals[1], Controversy: vals[2]}, true
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
