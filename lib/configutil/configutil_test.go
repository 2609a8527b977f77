package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl string   `json:"base_url"`
	Cities  []string `json:"cities"`
	Retries int      `json:"retries"`
}

type keyConfig struct {
	Key string `json:"key"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// defaults
		base_url: "https://example.com",
		cities: ["Zürich"],
		retries: 1,
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{retries: 3}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com", cfg.BaseUrl)
	require.Equal(t, []string{"Zürich"}, cfg.Cities)
	require.Equal(t, 3, cfg.Retries)
}

func TestReadConfigPlainJson(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "google.json")
	err := os.WriteFile(path, []byte(`{"key": "abc"}`), 0600)
	require.NoError(t, err)

	out, err := ReadConfig[keyConfig](path)
	require.NoError(t, err)
	require.Equal(t, "abc", out.Key)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, filepath.Join("a", "config.local.json5"), localName(filepath.Join("a", "config.json5")))
	require.Equal(t, filepath.Join("a", "creds.local"), localName(filepath.Join("a", "creds")))
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "telemetry.json5"), []byte(`{retries: 2}`), 0600))

	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(previous) })

	cfg, err := ReadRecursively[testConfig]("telemetry.json5")
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Retries)

	_, err = ReadRecursively[testConfig]("missing-everywhere.json5")
	require.ErrorIs(t, err, ErrNotFound)
}
