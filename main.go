package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"raffle/cmd"
	"raffle/config"
	"raffle/database"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "raffle"
	app.Usage = "provably fair lottery service"
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "serve the lottery API and run upkeep",
			Action: runAction,
		},
		{
			Name:  "migrate",
			Usage: "manage the database schema",
			Subcommands: []cli.Command{
				{
					Name:  "up",
					Usage: "apply all pending migrations",
					Action: func(c *cli.Context) error {
						url, err := databaseURL()
						if err != nil {
							return err
						}
						return database.MigrateUp(url)
					},
				},
				{
					Name:  "down",
					Usage: "roll back migrations",
					Flags: []cli.Flag{
						cli.IntFlag{
							Name:  "steps",
							Value: 1,
							Usage: "number of migrations to roll back",
						},
					},
					Action: func(c *cli.Context) error {
						url, err := databaseURL()
						if err != nil {
							return err
						}
						return database.MigrateDown(url, c.Int("steps"))
					},
				},
				{
					Name:  "status",
					Usage: "print the current schema version",
					Action: func(c *cli.Context) error {
						url, err := databaseURL()
						if err != nil {
							return err
						}
						return database.MigrateStatus(url)
					},
				},
			},
		},
	}
	// Running without a subcommand serves the lottery
	app.Action = runAction

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func runAction(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	return cmd.Run(ctx)
}

// databaseURL loads the configuration for migrate commands, which must not
// fall back to test defaults the way config.Get does
func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}
	cmd.ConfigureLogging(cfg)
	return cfg.GetDatabaseURL(), nil
}
