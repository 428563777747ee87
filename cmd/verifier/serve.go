package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/config"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/db"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/logger"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/pipeline/metrics"
	"github.com/Roosh27/Sovereign-AI-Verifier/internal/server"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that accepts applications and documents and runs the verification pipeline.

Write routes require a bearer token when JWT_SECRET and the operator credentials are set.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := appConfig
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		srv, cleanup, err := newServer(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

// newServer opens and migrates the store, then wires the orchestrator,
// metrics and optional operator auth into an API server.
func newServer(ctx context.Context, cfg config.Config) (*server.Server, func(), error) {
	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []pipeline.Option{
		pipeline.WithPolicy(policyFromConfig(cfg)),
		pipeline.WithLogger(logger.Log),
		pipeline.WithMetrics(metrics.New(reg)),
		pipeline.WithExplanations(cfg.Explain),
	}
	release := func() {}
	explainer, closeExplainer, err := newExplainer(ctx, cfg)
	switch {
	case err == nil:
		opts = append(opts, pipeline.WithExplainer(explainer))
		release = closeExplainer
	case cfg.Explain:
		store.Close()
		return nil, nil, err
	default:
		logger.Log.WithError(err).Warn("explanations will use the fallback text")
	}

	srvCfg := server.Config{
		Port:         cfg.Port,
		Store:        store,
		Orchestrator: pipeline.NewOrchestrator(newClassifier(cfg), opts...),
		App:          cfg,
		Gatherer:     reg,
		Logger:       logger.Log,
	}
	if os.Getenv("JWT_SECRET") != "" {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			release()
			store.Close()
			return nil, nil, err
		}
		passwords, err := config.NewPasswordConfig()
		if err != nil {
			release()
			store.Close()
			return nil, nil, err
		}
		srvCfg.JWT = jwtCfg
		srvCfg.Passwords = passwords
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		release()
		store.Close()
		return nil, nil, fmt.Errorf("failed to create server: %w", err)
	}
	return srv, func() {
		release()
		store.Close()
	}, nil
}
