package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setBaseEnv sets the minimum environment for a valid default config.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AZURE_STORAGE_ACCOUNT", "prodimages")
	t.Setenv("AZURE_FOUNDRY_ENDPOINT", "https://foundry.example.com/")
	t.Setenv("AZURE_FOUNDRY_DEPLOYMENT_SLM", "gpt-4o-mini")
	t.Setenv("AZURE_TRANSLATOR_ENDPOINT", "https://api.cognitive.microsofttranslator.com")
}

func TestFromEnv_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, DescriberStrategySLM, cfg.Describer)
	assert.Equal(t, TranslatorStrategyAPI, cfg.Translator)
	assert.Equal(t, []string{"en"}, cfg.Locales)
	assert.Equal(t, "ingest", cfg.IngestContainer)
	assert.Equal(t, "public", cfg.PublicContainer)
	assert.Equal(t, "https://foundry.example.com", cfg.FoundryEndpoint, "trailing slash should be trimmed")
}

func TestFromEnv_StrategySelectors(t *testing.T) {
	t.Run("prefixed selector", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DESCRIBER", "strategy:llm")
		t.Setenv("AZURE_FOUNDRY_DEPLOYMENT_LLM", "gpt-4o")
		t.Setenv("TRANSLATOR", "strategy:llm")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, DescriberStrategyLLM, cfg.Describer)
		assert.Equal(t, TranslatorStrategyLLM, cfg.Translator)
	})

	t.Run("bare selector tolerated", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DESCRIBER", "phi4")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, DescriberStrategyPhi4, cfg.Describer)
	})

	t.Run("unknown describer strategy fails", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DESCRIBER", "strategy:oracle")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oracle")
	})

	t.Run("unknown translator strategy fails", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("TRANSLATOR", "strategy:oracle")

		_, err := FromEnv()
		require.Error(t, err)
	})
}

func TestFromEnv_Locales(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LOCALES", "EN, de ,JP,")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "de", "jp"}, cfg.Locales)
}

func TestFromEnv_ValidationErrors(t *testing.T) {
	t.Run("missing storage account", func(t *testing.T) {
		t.Setenv("AZURE_STORAGE_ACCOUNT", "")
		t.Setenv("AZURE_FOUNDRY_ENDPOINT", "https://foundry.example.com")
		t.Setenv("AZURE_FOUNDRY_DEPLOYMENT_SLM", "gpt-4o-mini")
		t.Setenv("AZURE_TRANSLATOR_ENDPOINT", "https://t.example.com")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AZURE_STORAGE_ACCOUNT")
	})

	t.Run("vision strategy requires vision endpoint", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DESCRIBER", "strategy:vision")
		t.Setenv("AZURE_VISION_ENDPOINT", "")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AZURE_VISION_ENDPOINT")
	})

	t.Run("chat translator requires deployment", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("TRANSLATOR", "strategy:phi4")
		t.Setenv("AZURE_FOUNDRY_DEPLOYMENT_SLM", "")

		_, err := FromEnv()
		require.Error(t, err)
	})
}

func TestDescriberDeployment(t *testing.T) {
	cfg := &Config{
		FoundryDeploymentSLM: "slm-dep",
		FoundryDeploymentLLM: "llm-dep",
	}

	cfg.Describer = DescriberStrategySLM
	assert.Equal(t, "slm-dep", cfg.DescriberDeployment())

	cfg.Describer = DescriberStrategyLLM
	assert.Equal(t, "llm-dep", cfg.DescriberDeployment())

	cfg.Describer = DescriberStrategyPhi4
	assert.Equal(t, "slm-dep", cfg.DescriberDeployment(), "phi4 falls back to the SLM deployment")
	cfg.FoundryDeploymentPhi4 = "phi-4"
	assert.Equal(t, "phi-4", cfg.DescriberDeployment())

	cfg.Describer = DescriberStrategyVision
	assert.Empty(t, cfg.DescriberDeployment())
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"critical", LevelCritical},
		{"ERROR", slog.LevelError},
	}
	for _, tc := range cases {
		got, err := ParseLogLevel(tc.in)
		require.NoError(t, err, "level %q", tc.in)
		assert.Equal(t, tc.want, got, "level %q", tc.in)
	}

	_, err := ParseLogLevel("verbose")
	require.Error(t, err)
}
