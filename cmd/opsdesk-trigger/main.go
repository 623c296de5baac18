package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/opsdesk/pkg/cmd"
	"github.com/dukex/opsdesk/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "opsdesk-trigger",
		EnableShellCompletion: true,
		Usage:                 "Consume trigger events from the event bus and the Redis queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus channel provider (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the trigger queue (empty disables the queue consumer)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password for the trigger queue",
				Value:   "",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "trigger-queue",
				Usage:   "Redis list the trigger envelopes are pushed to",
				Value:   "",
				Sources: cli.EnvVars("TRIGGER_QUEUE"),
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

			logger := log.WithModule("opsdesk-trigger")

			logger.InfoContext(ctx, "Initializing OpsDesk Trigger")

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

			manager := NewTriggerManager(persistence, logger, triggerConfig{
				eventBusProvider: command.String("event-bus"),
				redisAddr:        command.String("redis-addr"),
				redisPassword:    command.String("redis-password"),
				queue:            command.String("trigger-queue"),
			})

			return manager.Run(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
