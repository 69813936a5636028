package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:5000", c.APIBaseURL)
	assert.Equal(t, ":8088", c.ListenAddr)
	assert.Equal(t, 5*time.Second, c.RefreshInterval)
	assert.Equal(t, 30*time.Second, c.AlertInterval)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, "desk.db", c.StateDSN)
	assert.Equal(t, "desk.db", c.EffectiveJournalDSN())
	assert.False(t, c.ArchiveEnabled())
	assert.NotEmpty(t, c.SignatureKey)
}

func TestLoad_NoArgsIsDefaults(t *testing.T) {
	c, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), c))
}

func TestLoad_Flags(t *testing.T) {
	c, err := Load([]string{
		"-a", "http://backend:5000", "-l", "127.0.0.1:9000",
		"-r", "2s", "-t", "1m", "-w", "3s",
		"-k", "k3y", "-d", "state.db", "-j", "postgres://u@h/db",
		"-o", "gate-2", "-x", "/tmp/out", "-f", time.RFC3339,
		"-u", "user", "-p", "pass", "-b", "bucket", "-g", "eu-west-1", "-e", "http://minio:9000",
		"-unrelated", "zzz",
	})
	require.NoError(t, err)

	want := &Config{
		APIBaseURL:       "http://backend:5000",
		ListenAddr:       "127.0.0.1:9000",
		RefreshInterval:  2 * time.Second,
		AlertInterval:    time.Minute,
		RequestTimeout:   3 * time.Second,
		SignatureKey:     "k3y",
		StateDSN:         "state.db",
		JournalDSN:       "postgres://u@h/db",
		Operator:         "gate-2",
		ExportDir:        "/tmp/out",
		ExportTimeLayout: time.RFC3339,
		S3AccessKey:      "user",
		S3SecretKey:      "pass",
		S3Bucket:         "bucket",
		S3Region:         "eu-west-1",
		S3BaseEndpoint:   "http://minio:9000",
	}
	assert.Empty(t, cmp.Diff(want, c))
	assert.Equal(t, "postgres://u@h/db", c.EffectiveJournalDSN())
	assert.True(t, c.ArchiveEnabled())
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load([]string{"-r", "soon"})
	assert.Error(t, err)
}

func TestLoad_JSONThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desk.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api_base_url": "http://from-json:5000",
		"refresh_interval": "7s",
		"alert_interval": 60000000000,
		"operator": "json-op",
		"s3_bucket": "archive"
	}`), 0o600))

	c, err := Load([]string{"-c", path, "-o", "flag-op"})
	require.NoError(t, err)

	assert.Equal(t, "http://from-json:5000", c.APIBaseURL)
	assert.Equal(t, 7*time.Second, c.RefreshInterval)
	assert.Equal(t, time.Minute, c.AlertInterval)
	assert.Equal(t, "flag-op", c.Operator, "flags override the file")
	assert.Equal(t, "archive", c.S3Bucket)
	assert.Equal(t, ":8088", c.ListenAddr, "absent keys keep defaults")
}

func TestLoad_JSONErrors(t *testing.T) {
	_, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = Load([]string{"-c=" + path})
	assert.Error(t, err)
}

func TestLoadConfig_PanicsOnBadInput(t *testing.T) {
	old := os.Args
	t.Cleanup(func() { os.Args = old })

	os.Args = []string{"desk", "-r", "never"}
	assert.Panics(t, func() { LoadConfig() })

	os.Args = []string{"desk"}
	assert.NotPanics(t, func() { LoadConfig() })
}
