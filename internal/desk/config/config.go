// Package config handles configuration for the security desk binaries:
// defaults, an optional JSON overlay and command-line flags.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the desk service and console.
//
// Fields:
//   - APIBaseURL: base URL of the visitor-management backend.
//   - ListenAddr: bind address of the desk HTTP API.
//   - RefreshInterval / AlertInterval: snapshot poll and overdue tick.
//   - RequestTimeout: per-request timeout towards the backend.
//   - SignatureKey: shared secret for consent signature encryption.
//   - StateDSN: SQLite file for the warm-start cache (and journal by default).
//   - JournalDSN: journal database; empty reuses StateDSN, postgres:// selects PostgreSQL.
//   - Operator: name recorded in the action journal.
//   - ExportDir / ExportTimeLayout: where and how spreadsheets are written.
//   - S3*: optional export archive; an empty bucket disables it.
type Config struct {
	APIBaseURL       string
	ListenAddr       string
	RefreshInterval  time.Duration
	AlertInterval    time.Duration
	RequestTimeout   time.Duration
	SignatureKey     string
	StateDSN         string
	JournalDSN       string
	Operator         string
	ExportDir        string
	ExportTimeLayout string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the signature key default matches the legacy front-end and is not a secret.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:5000"
	c.ListenAddr = ":8088"
	c.RefreshInterval = 5 * time.Second
	c.AlertInterval = 30 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.SignatureKey = "your-secure-32-character-key!!"
	c.StateDSN = "desk.db"
	c.JournalDSN = ""
	c.Operator = "security-desk"
	c.ExportDir = "exports"
	c.ExportTimeLayout = "02/01/2006, 15:04:05"
	c.S3Region = "us-east-1"
}

// EffectiveJournalDSN falls back to the state database.
func (c *Config) EffectiveJournalDSN() string {
	if c.JournalDSN != "" {
		return c.JournalDSN
	}
	return c.StateDSN
}

// ArchiveEnabled reports whether exports are copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != ""
}

// Load applies defaults, then the JSON file named by -c/-config in args,
// then the flags in args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args; configuration errors are fatal.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
