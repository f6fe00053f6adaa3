// Command filestored runs the in-memory file store server described in the
// project's design notes: a Unix-socket service backed by a bounded worker
// pool, with FIFO/LRU/LFU eviction once its configured capacity is reached.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"

	"github.com/odinfs/filestored/internal/server"
)

func main() {
	var (
		configPath  = pflag.StringP("config", "c", "", "path to the server config file")
		metricsAddr = pflag.String("metrics-addr", "", "address to serve /metrics on (empty disables it)")
		debug       = pflag.Bool("debug", false, "enable debug logging")
	)
	pflag.Parse()

	level := server.LogLevelInfo
	if *debug {
		level = server.LogLevelDebug
	}
	var logger zerolog.Logger = server.NewLogger(server.LoggerConfig{Level: level, Format: server.LogFormatJSON})

	if *configPath == "" {
		logger.Fatal().Msg("missing required -config flag")
	}

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Info().
		Int("workers", cfg.WorkersNo).
		Int("max_files", cfg.MaxFilesNo).
		Int64("max_bytes", cfg.StorageSize).
		Str("policy", cfg.Policy.String()).
		Str("socket", cfg.SocketPath).
		Msg("starting filestored")

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct server")
	}

	// SIGPIPE would otherwise kill the process the moment a client vanishes
	// mid-write; every write to a client connection already checks its own
	// error return, so the signal itself carries no information we need.
	signal.Ignore(syscall.SIGPIPE)

	softCtx, stopSoft := signal.NotifyContext(context.Background(), syscall.SIGHUP)
	defer stopSoft()

	hardSig := make(chan os.Signal, 1)
	signal.Notify(hardSig, os.Interrupt, syscall.SIGQUIT)
	go func() {
		sig := <-hardSig
		logger.Warn().Str("signal", sig.String()).Msg("hard stop requested")
		srv.Shutdown(true)
	}()

	runErr := srv.Run(softCtx, *metricsAddr)
	if runErr != nil {
		logger.Error().Err(runErr).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("filestored stopped")
}
