package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// SonarConfig holds everything needed to reach the Sonar GraphQL API.
// Loaded once in main and passed by value to the client constructor;
// never mutated after LoadSonarConfig returns.
type SonarConfig struct {
	Endpoint       string `validate:"required,url"`
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	RecordsPerPage int
}

func init() {
	// Load env from .env (secrets.env kept for parity with older deployments).
	godotenv.Load()
	godotenv.Load("secrets.env")
}

// LoadSonarConfig reads and validates the API configuration from the environment.
func LoadSonarConfig() (SonarConfig, error) {
	cfg := SonarConfig{
		Endpoint:       strings.TrimSpace(os.Getenv("SONAR_GRAPHQL_ENDPOINT")),
		APIKey:         strings.TrimSpace(os.Getenv("SONAR_API_KEY")),
		Timeout:        time.Duration(intFromEnv("SONAR_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:     intFromEnv("SONAR_MAX_RETRIES", 3),
		RecordsPerPage: intFromEnv("SONAR_RECORDS_PER_PAGE", 10000),
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return SonarConfig{}, err
	}
	return cfg, nil
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
