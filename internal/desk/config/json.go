package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/visitdesk/internal/flagx"
	"github.com/dmitrijs2005/visitdesk/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations may
// be written as "5s" or as integer nanoseconds.
type JsonConfig struct {
	APIBaseURL       string         `json:"api_base_url"`
	ListenAddr       string         `json:"listen_addr"`
	RefreshInterval  timex.Duration `json:"refresh_interval"`
	AlertInterval    timex.Duration `json:"alert_interval"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	SignatureKey     string         `json:"signature_key"`
	StateDSN         string         `json:"state_dsn"`
	JournalDSN       string         `json:"journal_dsn"`
	Operator         string         `json:"operator"`
	ExportDir        string         `json:"export_dir"`
	ExportTimeLayout string         `json:"export_time_layout"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
}

// parseJson overlays the file given by -c/-config onto config. Keys that
// are absent or empty in the file leave the current value untouched.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.APIBaseURL, c.APIBaseURL)
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.SignatureKey, c.SignatureKey)
	setString(&config.StateDSN, c.StateDSN)
	setString(&config.JournalDSN, c.JournalDSN)
	setString(&config.Operator, c.Operator)
	setString(&config.ExportDir, c.ExportDir)
	setString(&config.ExportTimeLayout, c.ExportTimeLayout)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.RefreshInterval.Duration > 0 {
		config.RefreshInterval = c.RefreshInterval.Duration
	}
	if c.AlertInterval.Duration > 0 {
		config.AlertInterval = c.AlertInterval.Duration
	}
	if c.RequestTimeout.Duration > 0 {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
