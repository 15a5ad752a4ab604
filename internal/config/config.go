package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	// Matching thresholds and tolerances. Similarity scores are 0..100;
	// amount tolerances are absolute, in the invoice currency unit.
	SupplierMatchThreshold    int
	DescriptionMatchThreshold int
	TotalTolerance            float64
	UnitPriceTolerance        float64

	ProcessWorkers int
	ProcessBatch   int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		SupplierMatchThreshold:    getEnvInt("SUPPLIER_MATCH_THRESHOLD", 80),
		DescriptionMatchThreshold: getEnvInt("DESCRIPTION_MATCH_THRESHOLD", 80),
		TotalTolerance:            getEnvFloat("TOTAL_TOLERANCE", 1.0),
		UnitPriceTolerance:        getEnvFloat("UNIT_PRICE_TOLERANCE", 0.01),

		ProcessWorkers: getEnvInt("PROCESS_WORKERS", 4),
		ProcessBatch:   getEnvInt("PROCESS_BATCH", 50),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
