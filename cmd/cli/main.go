package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/visitdesk/internal/buildinfo"
	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/app"
	"github.com/dmitrijs2005/visitdesk/internal/desk/cli"
	"github.com/dmitrijs2005/visitdesk/internal/desk/config"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	if cfg.SignatureKey == "" {
		key, err := cli.GetSecret("Signature key", os.Stdout)
		if err != nil {
			log.Fatalf("%v", err)
		}
		cfg.SignatureKey = string(key)
		common.WipeByteArray(key)
	}

	// the console keeps stdout for the operator
	logger := logging.NewJSON(os.Stderr, slog.LevelWarn)
	rt, err := app.Build(ctx, cfg, logger, prometheus.NewRegistry())

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer rt.Close()

	cli.NewApp(rt.Desk, cli.WithOutputDir(cfg.ExportDir)).Run(ctx)

}
