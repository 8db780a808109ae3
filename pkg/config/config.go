// Package config loads and validates the alttexter configuration from the
// environment. All knobs are plain environment variables (optionally seeded
// from a .env file by the caller); there is no configuration directory.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LevelCritical is the slog level for the LOG_LEVEL value "critical".
// slog has no built-in critical level; four above Error keeps the ordering.
const LevelCritical = slog.LevelError + 4

// strategyPrefix is the selector prefix understood by DESCRIBER and TRANSLATOR.
const strategyPrefix = "strategy:"

// Config is the complete runtime configuration, loaded once at startup.
// It is read-only after FromEnv returns.
type Config struct {
	// HTTP listen port (HTTP_PORT, default "8080").
	HTTPPort string

	// Minimum log level (LOG_LEVEL: debug|info|warning|error|critical).
	LogLevel slog.Level

	// Describer and translator variant selectors.
	Describer  DescriberStrategy
	Translator TranslatorStrategy

	// Default target languages when the metadata document names none
	// (LOCALES, comma-joined two-letter codes).
	Locales []string

	// Object store account name (AZURE_STORAGE_ACCOUNT).
	StorageAccount string

	// Source and destination containers for the pipeline.
	IngestContainer string
	PublicContainer string

	// User-assigned managed identity client id (AZURE_CLIENT_ID, optional).
	ClientID string

	// Chat-completion endpoint and deployment names.
	FoundryEndpoint       string
	FoundryDeploymentSLM  string
	FoundryDeploymentLLM  string
	FoundryDeploymentPhi4 string

	// Vision caption+tags endpoint (vision describer strategy only).
	VisionEndpoint string

	// Dedicated translation API endpoint and region header value.
	TranslatorEndpoint string
	TranslatorRegion   string
}

// FromEnv builds a Config from the process environment and validates it.
func FromEnv() (*Config, error) {
	describer, err := parseDescriberStrategy(os.Getenv("DESCRIBER"))
	if err != nil {
		return nil, err
	}
	translator, err := parseTranslatorStrategy(os.Getenv("TRANSLATOR"))
	if err != nil {
		return nil, err
	}
	level, err := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              level,
		Describer:             describer,
		Translator:            translator,
		Locales:               parseLocales(os.Getenv("LOCALES")),
		StorageAccount:        os.Getenv("AZURE_STORAGE_ACCOUNT"),
		IngestContainer:       getEnv("INGEST_CONTAINER", "ingest"),
		PublicContainer:       getEnv("PUBLIC_CONTAINER", "public"),
		ClientID:              os.Getenv("AZURE_CLIENT_ID"),
		FoundryEndpoint:       strings.TrimRight(os.Getenv("AZURE_FOUNDRY_ENDPOINT"), "/"),
		FoundryDeploymentSLM:  os.Getenv("AZURE_FOUNDRY_DEPLOYMENT_SLM"),
		FoundryDeploymentLLM:  os.Getenv("AZURE_FOUNDRY_DEPLOYMENT_LLM"),
		FoundryDeploymentPhi4: os.Getenv("AZURE_FOUNDRY_DEPLOYMENT_PHI4"),
		VisionEndpoint:        strings.TrimRight(os.Getenv("AZURE_VISION_ENDPOINT"), "/"),
		TranslatorEndpoint:    strings.TrimRight(os.Getenv("AZURE_TRANSLATOR_ENDPOINT"), "/"),
		TranslatorRegion:      os.Getenv("AZURE_TRANSLATOR_REGION"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the endpoints required by the selected strategies
// are present. Called by FromEnv; exported for tests and tooling.
func (c *Config) Validate() error {
	if c.StorageAccount == "" {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required")
	}
	switch c.Describer {
	case DescriberStrategyVision:
		if c.VisionEndpoint == "" {
			return fmt.Errorf("AZURE_VISION_ENDPOINT is required for describer strategy %q", c.Describer)
		}
	default:
		if c.FoundryEndpoint == "" {
			return fmt.Errorf("AZURE_FOUNDRY_ENDPOINT is required for describer strategy %q", c.Describer)
		}
		if c.DescriberDeployment() == "" {
			return fmt.Errorf("no deployment configured for describer strategy %q", c.Describer)
		}
	}
	switch c.Translator {
	case TranslatorStrategyAPI:
		if c.TranslatorEndpoint == "" {
			return fmt.Errorf("AZURE_TRANSLATOR_ENDPOINT is required for translator strategy %q", c.Translator)
		}
	default:
		if c.FoundryEndpoint == "" {
			return fmt.Errorf("AZURE_FOUNDRY_ENDPOINT is required for translator strategy %q", c.Translator)
		}
		if c.TranslatorDeployment() == "" {
			return fmt.Errorf("no deployment configured for translator strategy %q", c.Translator)
		}
	}
	return nil
}

// DescriberDeployment returns the chat deployment name for the selected
// describer strategy. Empty for the vision strategy (it has no deployment).
func (c *Config) DescriberDeployment() string {
	switch c.Describer {
	case DescriberStrategyLLM:
		return c.FoundryDeploymentLLM
	case DescriberStrategyPhi4:
		if c.FoundryDeploymentPhi4 != "" {
			return c.FoundryDeploymentPhi4
		}
		return c.FoundryDeploymentSLM
	case DescriberStrategyVision:
		return ""
	default:
		return c.FoundryDeploymentSLM
	}
}

// TranslatorDeployment returns the chat deployment name for chat-based
// translator strategies. Empty for the dedicated translation API.
func (c *Config) TranslatorDeployment() string {
	switch c.Translator {
	case TranslatorStrategyLLM:
		return c.FoundryDeploymentLLM
	case TranslatorStrategyPhi4:
		if c.FoundryDeploymentPhi4 != "" {
			return c.FoundryDeploymentPhi4
		}
		return c.FoundryDeploymentSLM
	default:
		return ""
	}
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level. Empty means info.
func ParseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("unknown LOG_LEVEL %q", raw)
	}
}

// parseDescriberStrategy parses the DESCRIBER selector. Empty selects slm.
func parseDescriberStrategy(raw string) (DescriberStrategy, error) {
	name := stripStrategyPrefix(raw)
	if name == "" {
		return DescriberStrategySLM, nil
	}
	s := DescriberStrategy(name)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown describer strategy %q", raw)
	}
	return s, nil
}

// parseTranslatorStrategy parses the TRANSLATOR selector. Empty selects the
// dedicated translation API.
func parseTranslatorStrategy(raw string) (TranslatorStrategy, error) {
	name := stripStrategyPrefix(raw)
	if name == "" {
		return TranslatorStrategyAPI, nil
	}
	s := TranslatorStrategy(name)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown translator strategy %q", raw)
	}
	return s, nil
}

// stripStrategyPrefix removes the "strategy:" prefix from a selector value.
// A bare variant name is tolerated for hand-set environments.
func stripStrategyPrefix(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	return strings.TrimPrefix(raw, strategyPrefix)
}

// parseLocales splits the LOCALES value into lowercase codes. Empty input
// yields the English-only default.
func parseLocales(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"en"}
	}
	parts := strings.Split(raw, ",")
	locales := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			locales = append(locales, p)
		}
	}
	if len(locales) == 0 {
		return []string{"en"}
	}
	return locales
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
