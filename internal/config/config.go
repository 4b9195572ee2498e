package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvQdrantURL        = "QDRANT_URL"
	EnvQdrantAPIKey     = "QDRANT_API_KEY"
	EnvTextCollection   = "TEXT_COLLECTION_NAME"
	EnvImagesCollection = "IMAGES_COLLECTION_NAME"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvImagesDir        = "DOCRAG_IMAGES_DIR"
	EnvCatalogPath      = "DOCRAG_CATALOG_PATH"
)

// Config holds all externally supplied settings consumed by the engine.
// Values are numeric/boolean knobs plus service endpoints; no validation is
// applied beyond type and basic range checks.
type Config struct {
	// Vector index
	QdrantURL        string
	QdrantAPIKey     string // empty for local instances
	TextCollection   string
	ImagesCollection string
	VectorSize       int
	IndexTimeout     time.Duration

	// Chunking
	ChunkSize    int // word budget per chunk
	ChunkOverlap int // reserved; the segmenter does not apply overlap

	// Retrieval
	TopK               int
	ScoreThreshold     float64 // text collection
	ImageThreshold     float64 // image-caption collection, intentionally lower
	EmergencyThreshold float64
	MaxContextChunks   int
	MaxFanout          int // cap on reference fan-out searches per query
	MaxKeywords        int // cap on keyword fan-out searches per query

	// Multimodal
	ImageScoreBoost   float64
	MaxImagesPerQuery int
	ImagesDir         string

	// Generation
	GeminiAPIKey string

	// Catalog
	CatalogPath string
}

// Load reads configuration from the environment, honoring a .env file if one
// is present in the working directory.
func Load() (*Config, error) {
	// Missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	cfg := &Config{
		QdrantURL:        getString(EnvQdrantURL, "http://localhost:6333"),
		QdrantAPIKey:     os.Getenv(EnvQdrantAPIKey),
		TextCollection:   getString(EnvTextCollection, "docrag_text"),
		ImagesCollection: getString(EnvImagesCollection, "docrag_images"),
		VectorSize:       getInt("DOCRAG_VECTOR_SIZE", 1536),
		IndexTimeout:     getDuration("DOCRAG_INDEX_TIMEOUT", 15*time.Second),

		ChunkSize:    getInt("DOCRAG_CHUNK_SIZE", 2000),
		ChunkOverlap: getInt("DOCRAG_CHUNK_OVERLAP", 400),

		TopK:               getInt("DOCRAG_TOP_K", 25),
		ScoreThreshold:     getFloat("DOCRAG_SCORE_THRESHOLD", 0.3),
		ImageThreshold:     getFloat("DOCRAG_IMAGE_THRESHOLD", 0.2),
		EmergencyThreshold: getFloat("DOCRAG_EMERGENCY_THRESHOLD", 0.01),
		MaxContextChunks:   getInt("DOCRAG_MAX_CONTEXT_CHUNKS", 12),
		MaxFanout:          getInt("DOCRAG_MAX_FANOUT", 16),
		MaxKeywords:        getInt("DOCRAG_MAX_KEYWORDS", 8),

		ImageScoreBoost:   getFloat("DOCRAG_IMAGE_SCORE_BOOST", 1.2),
		MaxImagesPerQuery: getInt("DOCRAG_MAX_IMAGES_PER_QUERY", 5),
		ImagesDir:         getString(EnvImagesDir, "extracted_images"),

		GeminiAPIKey: os.Getenv(EnvGeminiAPIKey),

		CatalogPath: getString(EnvCatalogPath, ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative, got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top-k must be positive, got %d", c.TopK)
	}
	if c.ImageScoreBoost < 1.0 {
		return fmt.Errorf("image score boost must be >= 1.0, got %f", c.ImageScoreBoost)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("vector size must be positive, got %d", c.VectorSize)
	}
	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
