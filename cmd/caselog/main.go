package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/noah-isme/caselog-api/api/swagger"
	"github.com/noah-isme/caselog-api/internal/cli"
)

// @title Caselog API
// @version 1.0.0
// @description Emergency case submission and administrator dashboard
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
