// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "almalink",
		Short: "A CLI for the AlmaLink student-alumni portal data layer",
		Long: `almalink operates the portal's local-first data layer directly:
referral requests, discussion comments, and the remote search API.
Multiple invocations against the same data directory see each other's
writes, the same way multiple portal tabs do.`,
		SilenceUsage: true,
	}

	configPath   string
	jsonLogs     bool
	traceEnabled bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "force JSON log output")
	rootCmd.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "print OpenTelemetry spans to stdout")

	rootCmd.AddCommand(referralsCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(searchCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logging.Logger {
	useJSON := jsonLogs || cfg.Logging.JSON
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		useJSON = true
	}
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "almalink",
		JSON:    useJSON,
	})
}

// openLayer loads config, opens the data layer and a session for this
// invocation. The returned cleanup closes everything in order.
func openLayer() (*localdata.Session, config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, cfg, nil, err
	}

	logger := newLogger(cfg)

	shutdownTracing := func() {}
	if traceEnabled {
		shutdownTracing, err = initTracing()
		if err != nil {
			_ = logger.Close()
			return nil, cfg, nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	layer, err := localdata.Open(cfg, logger)
	if err != nil {
		shutdownTracing()
		_ = logger.Close()
		return nil, cfg, nil, err
	}

	session, err := layer.NewSession()
	if err != nil {
		_ = layer.Close()
		shutdownTracing()
		_ = logger.Close()
		return nil, cfg, nil, err
	}

	cleanup := func() {
		_ = session.Close()
		_ = layer.Close()
		shutdownTracing()
		_ = logger.Close()
	}
	return session, cfg, cleanup, nil
}

// initTracing installs a stdout span exporter for ad-hoc inspection.
func initTracing() (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", "almalink"))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func() { _ = tp.Shutdown(context.Background()) }, nil
}
