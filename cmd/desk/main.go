package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/visitdesk/internal/buildinfo"
	"github.com/dmitrijs2005/visitdesk/internal/desk/app"
	"github.com/dmitrijs2005/visitdesk/internal/desk/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	srv, err := app.NewServer(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	srv.Run(ctx)

}
