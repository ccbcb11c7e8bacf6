package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/aayushdutt/packkeeper/internal/app"
	"github.com/aayushdutt/packkeeper/internal/apperror"
	"github.com/aayushdutt/packkeeper/internal/core"
)

func findInstance(a *app.App, ref string) (core.Instance, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if inst, ok := a.Instances.Get(id); ok {
			return inst, nil
		}
	}
	if inst, ok := a.Instances.ByName(ref); ok {
		return inst, nil
	}
	if inst, ok := a.Instances.BySafeName(ref); ok {
		return inst, nil
	}
	return core.Instance{}, apperror.NotFound("instance", ref)
}

func findServer(a *app.App, ref string) (core.Server, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if srv, ok := a.Servers.Get(id); ok {
			return srv, nil
		}
	}
	for _, srv := range a.Servers.GetAll() {
		if strings.EqualFold(srv.Name, ref) || srv.SafeName == ref {
			return srv, nil
		}
	}
	return core.Server{}, apperror.NotFound("server", ref)
}

func findAccount(a *app.App, ref string) (core.Account, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if acc, ok := a.Accounts.Get(id); ok {
			return acc, nil
		}
	}
	if acc, ok := a.Accounts.ByUsername(ref); ok {
		return acc, nil
	}
	return core.Account{}, apperror.NotFound("account", ref)
}

func instancesCommand() *cli.Command {
	return &cli.Command{
		Name:    "instances",
		Aliases: []string{"i"},
		Usage:   "Manage instances",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List instances by name",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "check", Usage: "Check for updates before listing"},
				},
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if c.Bool("check") {
						a.Scheduler.CheckAll(c.Context)
					}

					t := newTable(c.App.Writer, "Name", "Minecraft", "Loader", "Pack", "Version", "Latest", "Plays", "Last played")
					for _, inst := range a.Instances.Sorted() {
						latest := "-"
						if inst.Pack != nil {
							if e, ok := a.Engine(inst.Pack.Platform); ok {
								if v := e.LatestVersion(inst.ID); v != nil {
									latest = v.Name
									if e.HasUpdate(inst) {
										latest += " (update)"
									}
								}
							}
						}
						t.AppendRow([]any{
							inst.Name, inst.Minecraft, inst.Loader,
							packLabel(inst.Pack), versionLabel(inst.Pack), latest,
							humanize.Comma(inst.PlayCount), ago(inst.LastPlayed),
						})
					}
					t.AppendFooter([]any{fmt.Sprintf("%d instances", len(a.Instances.GetAll()))})
					t.Render()
					return nil
				}),
			},
			{
				Name:      "clone",
				Usage:     "Copy an instance under a new name",
				ArgsUsage: "<instance> <new name>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					src, err := findInstance(a, c.Args().Get(0))
					if err != nil {
						return err
					}
					inst, err := a.Instances.Clone(src.ID, c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Cloned %s to %s (%s)\n", src.Name, inst.Name, inst.Root)
					return nil
				}),
			},
			{
				Name:      "rename",
				Usage:     "Rename an instance and its directory",
				ArgsUsage: "<instance> <new name>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					src, err := findInstance(a, c.Args().Get(0))
					if err != nil {
						return err
					}
					inst, err := a.Instances.Rename(src.ID, c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Renamed %s to %s\n", src.Name, inst.Name)
					return nil
				}),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete an instance and its files",
				ArgsUsage: "<instance>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					inst, err := findInstance(a, c.Args().First())
					if err != nil {
						return err
					}
					if err := a.Instances.Remove(inst.ID); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Removed %s\n", inst.Name)
					return nil
				}),
			},
			{
				Name:      "played",
				Usage:     "Record a play session",
				ArgsUsage: "<instance>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					inst, err := findInstance(a, c.Args().First())
					if err != nil {
						return err
					}
					if err := a.Instances.UpdateLastPlayed(inst.ID); err != nil {
						return err
					}
					updated, _ := a.Instances.Get(inst.ID)
					fmt.Fprintf(c.App.Writer, "%s played %s times\n", updated.Name, humanize.Comma(updated.PlayCount))
					return nil
				}),
			},
		},
	}
}

func accountsCommand() *cli.Command {
	return &cli.Command{
		Name:    "accounts",
		Aliases: []string{"a"},
		Usage:   "Manage accounts",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List accounts",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					var selected uuid.UUID
					if sel := a.Accounts.Selected(); sel != nil {
						selected = sel.ID
					}

					t := newTable(c.App.Writer, "", "Username", "Type", "Token expires")
					for _, acc := range a.Accounts.GetAll() {
						mark := ""
						if acc.ID == selected {
							mark = "*"
						}
						expires := "-"
						if acc.Type == core.AccountTypeMSA {
							expires = ago(acc.ExpiresAt)
						}
						t.AppendRow([]any{mark, acc.Username, acc.Type, expires})
					}
					t.Render()
					return nil
				}),
			},
			{
				Name:      "switch",
				Usage:     "Select the account used to play; \"none\" clears the selection",
				ArgsUsage: "<account|none>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					if c.Args().First() == "none" {
						return a.Accounts.SwitchAccount(nil)
					}
					acc, err := findAccount(a, c.Args().First())
					if err != nil {
						return err
					}
					if err := a.Accounts.SwitchAccount(&acc.ID); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Playing as %s\n", acc.Username)
					return nil
				}),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Forget an account",
				ArgsUsage: "<account>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					acc, err := findAccount(a, c.Args().First())
					if err != nil {
						return err
					}
					if err := a.Accounts.Remove(acc.ID); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Removed %s\n", acc.Username)
					return nil
				}),
			},
		},
	}
}

func serversCommand() *cli.Command {
	return &cli.Command{
		Name:  "servers",
		Usage: "Manage server installations",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List servers",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					t := newTable(c.App.Writer, "Name", "Minecraft", "Loader", "Pack", "Version", "Created")
					for _, srv := range a.Servers.GetAll() {
						t.AppendRow([]any{srv.Name, srv.Minecraft, srv.Loader, packLabel(srv.Pack), versionLabel(srv.Pack), ago(srv.CreatedAt)})
					}
					t.Render()
					return nil
				}),
			},
			{
				Name:      "clone",
				Usage:     "Copy a server under a new name",
				ArgsUsage: "<server> <new name>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 2); err != nil {
						return err
					}
					src, err := findServer(a, c.Args().Get(0))
					if err != nil {
						return err
					}
					srv, err := a.Servers.Clone(src.ID, c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Cloned %s to %s\n", src.Name, srv.Name)
					return nil
				}),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete a server and its files",
				ArgsUsage: "<server>",
				Action: withApp(func(c *cli.Context, a *app.App) error {
					if err := requireArgs(c, 1); err != nil {
						return err
					}
					srv, err := findServer(a, c.Args().First())
					if err != nil {
						return err
					}
					if err := a.Servers.Remove(srv.ID); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Removed %s\n", srv.Name)
					return nil
				}),
			},
		},
	}
}
