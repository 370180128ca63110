// Package main is the entry point for the ingest binary. It consumes JSON
// messages from Kafka, translates them through a field mapping, and writes
// them to a wasmdb server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wasmdb/internal/ingest"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		brokers     []string
		groupID     string
		topic       string
		mappingPath string
		serverURL   string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:           "wasmdb-ingest",
		Short:         "Stream messages from Kafka into a wasmdb server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			mapping, err := ingest.LoadMapping(mappingPath)
			if err != nil {
				return err
			}

			reader := ingest.NewKafkaReader(brokers, groupID, topic)
			defer reader.Close() //nolint:errcheck

			consumer := ingest.NewConsumer(reader, mapping, ingest.NewInsertClient(serverURL), logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			logger.Info("consuming", "topic", topic, "group", groupID, "server", serverURL)
			return consumer.Run(ctx)
		},
	}

	cmd.Flags().StringSliceVar(&brokers, "brokers", []string{"localhost:9092"}, "Kafka bootstrap brokers")
	cmd.Flags().StringVar(&groupID, "group", "wasmdb-ingest", "Kafka consumer group ID")
	cmd.Flags().StringVar(&topic, "topic", "", "Kafka topic to consume (required)")
	cmd.Flags().StringVar(&mappingPath, "mapping", "mapping.yaml", "path to the field mapping document")
	cmd.Flags().StringVar(&serverURL, "server-url", "http://localhost:8080", "base URL of the wasmdb server")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("topic")

	return cmd
}
