package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/aayushdutt/packkeeper/internal/app"
	"github.com/aayushdutt/packkeeper/internal/core"
	"github.com/aayushdutt/packkeeper/internal/observable"
	"github.com/aayushdutt/packkeeper/internal/update"
)

func updatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "updates",
		Usage: "Check modpack platforms for newer versions",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run one update check",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "platform", Usage: "Only check this platform"},
				},
				Action: withApp(func(c *cli.Context, a *app.App) error {
					var reports []update.Report
					if name := c.String("platform"); name != "" {
						e, ok := a.Engine(core.Platform(name))
						if !ok {
							return cli.Exit(fmt.Sprintf("unknown platform %q", name), 2)
						}
						reports = []update.Report{e.CheckForUpdates(c.Context)}
					} else {
						reports = a.Scheduler.CheckAll(c.Context)
					}

					printReports(c.App.Writer, reports)
					printUpdates(c.App.Writer, a)
					return nil
				}),
			},
		},
	}
}

func printReports(w io.Writer, reports []update.Report) {
	t := newTable(w, "Platform", "Run", "Checked", "Updates", "No result", "Status")
	for _, r := range reports {
		status := "ok"
		switch {
		case r.Skipped:
			status = "disabled"
		case r.Err != nil:
			status = r.Err.Error()
		}
		t.AppendRow([]any{r.Platform, r.RunID, r.Checked, r.Updates, r.Missing, status})
	}
	t.Render()
}

func printUpdates(w io.Writer, a *app.App) {
	t := newTable(w, "Instance", "Installed", "Latest", "Channel", "Published")
	n := 0
	for _, inst := range a.Instances.Sorted() {
		if inst.Pack == nil {
			continue
		}
		e, ok := a.Engine(inst.Pack.Platform)
		if !ok || !e.HasUpdate(inst) {
			continue
		}
		latest := e.LatestVersion(inst.ID)
		t.AppendRow([]any{inst.Name, versionLabel(inst.Pack), latest.Name, latest.Channel, ago(latest.Published)})
		n++
	}
	if n == 0 {
		fmt.Fprintln(w, "Everything is up to date.")
		return
	}
	t.Render()
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect configuration",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print a launcher setting, e.g. platforms.modrinth.modpacksEnabled",
				ArgsUsage: "<key>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					raw, ok := a.Launcher.Lookup(c.Args().First())
					if !ok {
						return cli.Exit(fmt.Sprintf("%s is not set", c.Args().First()), 1)
					}
					fmt.Fprintln(c.App.Writer, raw)
					return nil
				}),
			},
			{
				Name:  "path",
				Usage: "Print where settings are read from",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					fmt.Fprintln(c.App.Writer, a.Config.ConfigPath())
					fmt.Fprintln(c.App.Writer, a.Config.LauncherPath())
					return nil
				}),
			},
		},
	}
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the platform response cache",
		Subcommands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Drop cached responses",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Value: 24 * time.Hour, Usage: "Age of responses to drop"},
				},
				Action: withApp(func(c *cli.Context, a *app.App) error {
					n, err := a.PruneCache(c.Context, c.Duration("older-than"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Pruned %d responses\n", n)
					return nil
				}),
			},
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run scheduled update checks and print changes until interrupted",
		Action: withApp(func(c *cli.Context, a *app.App) error {
			w := newWatcher(c.App.Writer, a)
			defer w.close()

			a.Scheduler.Start(c.Context)
			<-c.Context.Done()
			return nil
		}),
	}
}

// watcher prints every change published by the managers and engines
type watcher struct {
	out io.Writer
	app *app.App

	mu    sync.Mutex
	subs  []*observable.Subscription
	slots map[uuid.UUID]bool
}

func newWatcher(out io.Writer, a *app.App) *watcher {
	w := &watcher{out: out, app: a, slots: make(map[uuid.UUID]bool)}

	w.track(a.Instances.Subscribe(w.onInstances))
	w.track(a.Accounts.SelectedObservable().Subscribe(func(acc *core.Account) {
		if acc == nil {
			w.printf("no account selected")
			return
		}
		w.printf("playing as %s", acc.Username)
	}))
	w.track(a.Servers.Subscribe(func(servers []core.Server) {
		w.printf("%d servers", len(servers))
	}))
	return w
}

func (w *watcher) onInstances(instances []core.Instance) {
	w.printf("%d instances", len(instances))
	for _, inst := range instances {
		if inst.Pack == nil {
			continue
		}
		e, ok := w.app.Engine(inst.Pack.Platform)
		if !ok {
			continue
		}

		w.mu.Lock()
		seen := w.slots[inst.ID]
		w.slots[inst.ID] = true
		w.mu.Unlock()
		if seen {
			continue
		}

		name := inst.Name
		w.track(e.Observable(inst.ID).Subscribe(func(v *core.VersionDescriptor) {
			if v != nil {
				w.printf("%s: latest %s (%s)", name, v.Name, v.Channel)
			}
		}))
	}
}

func (w *watcher) track(sub *observable.Subscription) {
	w.mu.Lock()
	w.subs = append(w.subs, sub)
	w.mu.Unlock()
}

func (w *watcher) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, time.Now().Format("15:04:05")+" "+format+"\n", args...)
}

func (w *watcher) close() {
	w.mu.Lock()
	subs := w.subs
	w.subs = nil
	w.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}
