package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gonkalabs/piisweep-go"
)

// Cfg holds runtime configuration for the CLI and the gateway.
type Cfg struct {
	APIKey  string // PIISWEEP_API_KEY
	BaseURL string // PIISWEEP_BASE_URL, e.g. https://piisweep.com

	// Types is the default category filter applied when a request names none.
	// nil means all categories. PIISWEEP_TYPES=email,phone
	Types []piisweep.PIIType

	LogLevel   string // LOG_LEVEL=debug|info|warn|error
	ListenAddr string // e.g. :8080
}

// Load reads .env (if present) then environment variables and returns Cfg.
// A missing API key is not an error here; call Validate once flags have
// been applied.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	baseURL := strings.TrimSpace(os.Getenv("PIISWEEP_BASE_URL"))
	if baseURL == "" {
		baseURL = piisweep.DefaultBaseURL
	}

	var types []piisweep.PIIType
	if raw := strings.TrimSpace(os.Getenv("PIISWEEP_TYPES")); raw != "" {
		var err error
		types, err = ParseTypes(raw)
		if err != nil {
			return nil, err
		}
	}

	logLevel := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	return &Cfg{
		APIKey:     strings.TrimSpace(os.Getenv("PIISWEEP_API_KEY")),
		BaseURL:    baseURL,
		Types:      types,
		LogLevel:   logLevel,
		ListenAddr: ":" + port,
	}, nil
}

// Validate reports configuration that would make every request fail.
func (c *Cfg) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PIISWEEP_API_KEY (or --api-key) must be set")
	}
	return nil
}

// ParseTypes parses "email, phone,name" into a category list. Empty entries
// are skipped. Values are not checked against the known categories; the
// service decides what it accepts.
func ParseTypes(raw string) ([]piisweep.PIIType, error) {
	var types []piisweep.PIIType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		types = append(types, piisweep.PIIType(part))
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("PIISWEEP_TYPES is set but contains no valid entries")
	}
	return types, nil
}
