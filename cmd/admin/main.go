// Package main runs the Mathly operator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	admincmd "github.com/SingularTensor/Mathly/internal/cmd/admin"
	"github.com/SingularTensor/Mathly/internal/platform/config"
)

func main() {
	cfg, err := admincmd.LoadConfig()
	config.ExitOnError("load config", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.ExitOnError("admin", admincmd.Execute(ctx, cfg, os.Args[1:], os.Stdout))
}
