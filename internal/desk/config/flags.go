package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/visitdesk/internal/flagx"
)

var knownFlags = []string{
	"-a", "-l", "-r", "-t", "-w", "-k", "-d", "-j", "-o", "-x", "-f",
	"-u", "-p", "-b", "-g", "-e",
}

// parseFlags overlays command-line flags onto config.
//
//	-a string     backend base URL
//	-l string     desk API listen address
//	-r duration   snapshot refresh interval (e.g. 5s)
//	-t duration   overdue alert interval (e.g. 30s)
//	-w duration   backend request timeout
//	-k string     signature key
//	-d string     state SQLite DSN
//	-j string     journal DSN
//	-o string     operator name for the journal
//	-x string     export directory
//	-f string     export time layout (Go reference time)
//	-u/-p string  S3 access key / secret key
//	-b/-g string  S3 bucket / region
//	-e string     S3 base endpoint
//
// Unknown flags are filtered out first so -c and binary-specific flags do
// not collide.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("desk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.APIBaseURL, "a", config.APIBaseURL, "backend base URL")
	fs.StringVar(&config.ListenAddr, "l", config.ListenAddr, "desk API listen address")
	fs.DurationVar(&config.RefreshInterval, "r", config.RefreshInterval, "snapshot refresh interval")
	fs.DurationVar(&config.AlertInterval, "t", config.AlertInterval, "overdue alert interval")
	fs.DurationVar(&config.RequestTimeout, "w", config.RequestTimeout, "backend request timeout")
	fs.StringVar(&config.SignatureKey, "k", config.SignatureKey, "signature key")
	fs.StringVar(&config.StateDSN, "d", config.StateDSN, "state database DSN")
	fs.StringVar(&config.JournalDSN, "j", config.JournalDSN, "journal database DSN")
	fs.StringVar(&config.Operator, "o", config.Operator, "operator name")
	fs.StringVar(&config.ExportDir, "x", config.ExportDir, "export directory")
	fs.StringVar(&config.ExportTimeLayout, "f", config.ExportTimeLayout, "export time layout")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	return fs.Parse(args)
}
