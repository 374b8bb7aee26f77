package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken       string
	HTTPAddr            string
	ModelPath           string
	ORTLibraryPath      string
	ClassesPath         string // YOLO data.yaml с именами классов
	ImageSize           int
	ConfidenceThreshold float64
	IOUThreshold        float64
	BatchLimit          int // снимков одновременно в пакетной обработке
	DatabaseURL         string
	GeminiAPIKey        string
	GeminiModel         string
	ExplainLanguage     string
	LogLevel            string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ModelPath:       getenv("MODEL_PATH", "model/best.onnx"),
		ORTLibraryPath:  os.Getenv("ORT_LIBRARY_PATH"),
		ClassesPath:     os.Getenv("CLASSES_PATH"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		ExplainLanguage: getenv("EXPLAIN_LANGUAGE", "Russian"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.ImageSize, err = getInt("IMAGE_SIZE", 1408); err != nil {
		return nil, err
	}
	if cfg.ImageSize <= 0 || cfg.ImageSize%32 != 0 {
		return nil, fmt.Errorf("IMAGE_SIZE: %d is not a positive multiple of 32", cfg.ImageSize)
	}
	if cfg.ConfidenceThreshold, err = getRatio("CONFIDENCE_THRESHOLD", 0.25); err != nil {
		return nil, err
	}
	if cfg.IOUThreshold, err = getRatio("IOU_THRESHOLD", 0.7); err != nil {
		return nil, err
	}
	if cfg.BatchLimit, err = getInt("BATCH_LIMIT", 4); err != nil {
		return nil, err
	}
	if cfg.BatchLimit <= 0 {
		return nil, fmt.Errorf("BATCH_LIMIT: %d must be positive", cfg.BatchLimit)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// getRatio читает число из (0, 1].
func getRatio(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f <= 0 || f > 1 {
		return 0, fmt.Errorf("%s: %v is out of range (0, 1]", key, f)
	}
	return f, nil
}
