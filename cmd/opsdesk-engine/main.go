package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/opsdesk/pkg/cmd"
	"github.com/dukex/opsdesk/pkg/log"
	"github.com/dukex/opsdesk/pkg/otelhelper"
)

const (
	defaultRunPollIntervalMs = 15000
	defaultSlaPollIntervalMs = 60000
)

func main() {
	command := &cli.Command{
		Name:                  "opsdesk-engine",
		EnableShellCompletion: true,
		Usage:                 "Run the automation engine: run scheduling, action execution and SLA monitoring",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.IntFlag{
				Name:    "run-poll-interval-ms",
				Usage:   "How often to poll for due workflow runs, in milliseconds",
				Value:   defaultRunPollIntervalMs,
				Sources: cli.EnvVars("RUN_POLL_INTERVAL_MS"),
			},
			&cli.IntFlag{
				Name:    "sla-poll-interval-ms",
				Usage:   "How often to evaluate SLA targets, in milliseconds",
				Value:   defaultSlaPollIntervalMs,
				Sources: cli.EnvVars("SLA_POLL_INTERVAL_MS"),
			},
			&cli.StringFlag{
				Name:    "janitor-schedule",
				Usage:   "Cron schedule for the stuck-run report",
				Value:   "@hourly",
				Sources: cli.EnvVars("JANITOR_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "janitor-stuck-after-minutes",
				Usage:   "Minutes a run may stay running before it is reported as stuck",
				Value:   60,
				Sources: cli.EnvVars("JANITOR_STUCK_AFTER_MINUTES"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("opsdesk-engine")

			logger.InfoContext(ctx, "Initializing OpsDesk Engine")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var tracer trace.Tracer

			if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
				tracer, err = otelhelper.NewTracer(ctx, "opsdesk-engine")
				if err != nil {
					return err
				}
			}

			engine := NewEngine(persistence, tracer, logger, engineConfig{
				runPollIntervalMs:       command.Int("run-poll-interval-ms"),
				slaPollIntervalMs:       command.Int("sla-poll-interval-ms"),
				janitorSchedule:         command.String("janitor-schedule"),
				janitorStuckAfterMinute: command.Int("janitor-stuck-after-minutes"),
			})

			return engine.Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
