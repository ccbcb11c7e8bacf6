// Command debug-platform asks one platform about one pack and prints every
// version it offers, best first.
//
//	go run ./cmd/debug-platform -platform modrinth -project fabulously-optimized
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aayushdutt/packkeeper/internal/api"
	"github.com/aayushdutt/packkeeper/internal/core"
	"github.com/aayushdutt/packkeeper/internal/logging"
	"github.com/aayushdutt/packkeeper/internal/update"
)

func main() {
	platform := flag.String("platform", "modrinth", "curseforge, ftb, modrinth, technic or modpacksch")
	project := flag.String("project", "", "project id or slug")
	search := flag.String("search", "", "search Modrinth modpacks instead of querying a project")
	apiKey := flag.String("curseforge-key", os.Getenv("PACKKEEPER_CURSEFORGE_API_KEY"), "CurseForge API key")
	debug := flag.Bool("debug", false, "log requests")
	flag.Parse()

	if *project == "" && *search == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger, logs := logging.New(os.Stderr, logging.Options{Debug: *debug})
	defer logs.Close()
	opts := api.Options{Logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *search != "" {
		searchModrinth(ctx, api.NewModrinthClient(opts), *search)
		return
	}

	var p update.Platform
	var ranker update.Ranker = update.DefaultRanker{}
	switch core.Platform(*platform) {
	case core.PlatformCurseForge:
		p = update.NewCurseForge(api.NewCurseForgeClient(*apiKey, opts), logger)
	case core.PlatformFTB:
		p = update.NewFTB(api.NewFTBClient(opts), logger)
	case core.PlatformModrinth:
		client := api.NewModrinthClient(opts)
		if proj, err := client.GetProject(ctx, *project); err == nil {
			fmt.Printf("%s (%s), %s downloads\n", proj.Title, proj.ID, humanize.Comma(int64(proj.Downloads)))
		}
		p = update.NewModrinth(client, logger)
	case core.PlatformTechnic:
		p = update.NewTechnic(api.NewTechnicClient(opts), logger)
		ranker = update.SemverRanker{}
	case core.PlatformModpacksCh:
		p = update.NewModpacksCh(api.NewModpacksChClient(opts), logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown platform %q\n", *platform)
		os.Exit(2)
	}

	fmt.Printf("Querying %s for %s\n", p.Name(), *project)
	results, err := p.QueryLatest(ctx, []string{*project})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
		os.Exit(1)
	}
	versions, ok := results[*project]
	if !ok || len(versions) == 0 {
		fmt.Println("No versions found")
		return
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return ranker.Less(versions[j], versions[i])
	})

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "ID", "Name", "Channel", "Ordinal", "Published"})
	for i, v := range versions {
		published := "-"
		if !v.Published.IsZero() {
			published = humanize.Time(v.Published)
		}
		t.AppendRow(table.Row{i + 1, v.ID, v.Name, v.Channel, v.Ordinal, published})
	}
	t.Render()
}

func searchModrinth(ctx context.Context, client *api.ModrinthClient, query string) {
	result, err := client.Search(ctx, api.SearchOptions{Query: query, ProjectType: "modpack", Index: "relevance"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "search failed: %v\n", err)
		os.Exit(1)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Slug", "ID", "Title", "Downloads"})
	for _, hit := range result.Hits {
		t.AppendRow(table.Row{hit.Slug, hit.ProjectID, hit.Title, humanize.Comma(int64(hit.Downloads))})
	}
	t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d of %d", len(result.Hits), result.TotalHits)})
	t.Render()
}
