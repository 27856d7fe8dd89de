package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultBaseURL, cfg.OpenAIBaseURL)
	assert.Equal(t, DefaultModel, cfg.OpenAIModel)
	assert.Equal(t, DefaultZoom, cfg.Zoom)
	assert.Equal(t, KeepOriginal, cfg.OnPageFailure)
	assert.Equal(t, 0.50, cfg.Policy.ProtectedCoverage)
	assert.Equal(t, 0.60, cfg.Policy.ShellCoverage)
	assert.Equal(t, 0.80, cfg.Policy.ContainmentRatio)
	assert.Equal(t, 0.40, cfg.Policy.OrphanOverlap)
	assert.Equal(t, 3.0, cfg.Policy.WipeMargin)
	assert.NotEmpty(t, cfg.Render.TargetLang)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, cfg.OpenAIModel)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
}

func TestLoadInvalidJSONFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultZoom, cfg.Zoom)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg := Default()
	cfg.OpenAIModel = "gpt-4o-mini"
	cfg.Zoom = 2.0
	cfg.Policy.ShellCoverage = 0.70
	cfg.OnPageFailure = AbortDocument
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", loaded.OpenAIModel)
	assert.Equal(t, 2.0, loaded.Zoom)
	assert.Equal(t, 0.70, loaded.Policy.ShellCoverage)
	assert.Equal(t, AbortDocument, loaded.OnPageFailure)
}

func TestEnvFallbackForAPIKey(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "sk-test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", cfg.OpenAIAPIKey)
}

func TestFileAPIKeyBeatsEnv(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "sk-env-key")

	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.OpenAIAPIKey = "sk-file-key"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file-key", loaded.OpenAIAPIKey)
}

func TestInvalidPolicyValuesRepaired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"zoom": -1, "workers": 0, "on_page_failure": "shrug"}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultZoom, cfg.Zoom)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, KeepOriginal, cfg.OnPageFailure)
}

func TestInvalidRenderValuesRepaired(t *testing.T) {
	// A zero font step would spin the auto-fit loop forever; repair it and
	// the other render numerics without touching valid fields.
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"render": {"target_lang": "French", "font_step": 0, "min_font_size": -2}}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "French", cfg.Render.TargetLang)
	assert.Positive(t, cfg.Render.FontStep)
	assert.Positive(t, cfg.Render.MinFontSize)
	assert.Positive(t, cfg.Render.TranslateTimeout)
}
