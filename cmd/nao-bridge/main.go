// main package for the nao-bridge
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/book-expert/logger"

	"github.com/book-expert/nao-bridge/internal/config"
	"github.com/book-expert/nao-bridge/internal/naoqi"
	"github.com/book-expert/nao-bridge/internal/server"
	"github.com/book-expert/nao-bridge/internal/textnorm"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "nao-bridge.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	flagEnvPath := flag.String("env", config.DefaultPath(), "Path to the settings file")
	flag.Parse()

	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load and validate the settings file; any missing or malformed
	// value is fatal before anything else starts
	cfg, err := config.NewLoader().Load(*flagEnvPath)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded from %s", *flagEnvPath)

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.LogDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

// serve initializes the backend handle and runs the HTTP surface. Every
// failure before Run is fatal: the process must not serve without a live
// proxy.
func serve(cfg *config.Config, log *logger.Logger) error {
	sdk, err := naoqi.LocateSDK(cfg.SDKPath)
	if err != nil {
		log.Error("Invalid SDK path: %v", err)

		return fmt.Errorf("invalid SDK path: %w", err)
	}

	err = sdk.RegisterSearchPath(os.Getenv, os.Setenv)
	if err != nil {
		log.Error("Failed to register SDK search path: %v", err)

		return fmt.Errorf("failed to register SDK search path: %w", err)
	}

	err = sdk.ProbeClient()
	if err != nil {
		log.Error("naoqi client unavailable: %v", err)

		return fmt.Errorf("naoqi client unavailable: %w", err)
	}

	proxy, err := naoqi.Dial(cfg.NAOHost, cfg.NAOPort, log)
	if err != nil {
		log.Error("Failed to connect %s: %v", naoqi.ServiceName, err)

		return fmt.Errorf("failed to connect %s: %w", naoqi.ServiceName, err)
	}

	normalizer, err := textnorm.New(cfg.FallbackCharset)
	if err != nil {
		log.Error("Invalid fallback charset: %v", err)

		return fmt.Errorf("invalid fallback charset: %w", err)
	}

	handler := server.NewHandler(proxy, normalizer, log)
	addr := net.JoinHostPort(cfg.BindHost, strconv.Itoa(cfg.BindPort))
	bridge := server.New(addr, handler, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = bridge.Run(ctx)
	if err != nil {
		return fmt.Errorf("bridge stopped: %w", err)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
