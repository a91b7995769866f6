package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/jitcore/internal/config"
	"github.com/marmos91/jitcore/internal/logger"
	"github.com/marmos91/jitcore/pkg/jitruntime"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a long-running jitcore Runtime",
	Long: `serve starts a jitcore Runtime (dispatcher, optional telemetry and
metrics) and blocks until SIGINT or SIGTERM, the way a host process
embedding pkg/jitruntime would keep both engines alive across many Compile
calls.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.MustLoad(GetConfigFile())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := jitruntime.New(ctx, cfg, jitruntime.Options{Registry: defaultRegistry()})
	if err != nil {
		return fmt.Errorf("failed to build runtime: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("jitcore runtime started, press Ctrl+C to stop")
	<-sigChan
	signal.Stop(sigChan)
	logger.Info("shutdown signal received, stopping runtime")

	if err := rt.Close(ctx); err != nil {
		return fmt.Errorf("runtime shutdown error: %w", err)
	}
	logger.Info("runtime stopped")
	return nil
}
