package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/aayushdutt/packkeeper/internal/app"
	"github.com/aayushdutt/packkeeper/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "packkeeper",
		Usage: "Keep track of modpack instances, accounts and updates",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Data directory (defaults to the platform data dir)",
				EnvVars: []string{"PACKKEEPER_DATA_DIR"},
			},
			&cli.BoolFlag{Name: "debug", Usage: "Verbose logging"},
		},
		Commands: []*cli.Command{
			instancesCommand(),
			accountsCommand(),
			serversCommand(),
			updatesCommand(),
			configCommand(),
			cacheCommand(),
			watchCommand(),
		},
	}
}

// withApp loads config and collections before running action, and tears the
// app down afterwards.
func withApp(action func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String("data-dir"))
		if err != nil {
			return err
		}
		if c.Bool("debug") {
			cfg.Debug = true
		}

		a, err := app.New(cfg, app.Options{LogWriter: c.App.ErrWriter})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Load(c.Context); err != nil {
			return err
		}
		return action(c, a)
	}
}

// requireArgs fails with usage text unless exactly n positional args were given
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return cli.Exit(fmt.Sprintf("%s expects %d argument(s): %s", c.Command.FullName(), n, c.Command.ArgsUsage), 2)
	}
	return nil
}
