package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const modrinthBaseURL = "https://api.modrinth.com/v2"

// modrinthBatchSize caps ids per batch request to keep URLs a sane length
const modrinthBatchSize = 100

// ModrinthClient handles Modrinth API interactions
type ModrinthClient struct {
	*client
}

// NewModrinthClient creates a new Modrinth API client
func NewModrinthClient(opts Options) *ModrinthClient {
	return &ModrinthClient{client: newClient("modrinth", modrinthBaseURL, 5*time.Minute, opts)}
}

// Project represents a Modrinth project (mod, modpack, etc.)
type Project struct {
	ID           string   `json:"id"`
	Slug         string   `json:"slug"`
	ProjectType  string   `json:"project_type"` // mod, modpack, resourcepack, shader
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Downloads    int      `json:"downloads"`
	Updated      string   `json:"updated"`
	Versions     []string `json:"versions"`      // Version IDs
	GameVersions []string `json:"game_versions"` // Supported MC versions
	Loaders      []string `json:"loaders"`       // Supported loaders
}

// ProjectVersion represents a specific version of a project
type ProjectVersion struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Name          string    `json:"name"`
	VersionNumber string    `json:"version_number"`
	GameVersions  []string  `json:"game_versions"`
	VersionType   string    `json:"version_type"` // release, beta, alpha
	Loaders       []string  `json:"loaders"`
	Published     time.Time `json:"date_published"`
	Downloads     int       `json:"downloads"`
}

// SearchResult represents a search response
type SearchResult struct {
	Hits      []SearchHit `json:"hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	TotalHits int         `json:"total_hits"`
}

// SearchHit represents a single search result
type SearchHit struct {
	ProjectID     string `json:"project_id"`
	ProjectType   string `json:"project_type"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Downloads     int    `json:"downloads"`
	LatestVersion string `json:"latest_version"`
}

// SearchOptions configures a search query
type SearchOptions struct {
	Query       string
	Index       string // Sort index: relevance, downloads, follows, newest, updated
	Limit       int
	ProjectType string // mod, modpack, resourcepack, shader
}

// Search searches for projects
func (c *ModrinthClient) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	params := url.Values{}
	if opts.Query != "" {
		params.Set("query", opts.Query)
	}
	if opts.Index != "" {
		params.Set("index", opts.Index)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	} else {
		params.Set("limit", "20")
	}
	if opts.ProjectType != "" {
		facets, _ := json.Marshal([][]string{{"project_type:" + opts.ProjectType}})
		params.Set("facets", string(facets))
	}

	var result SearchResult
	if err := c.get(ctx, "/search", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProject fetches a project by ID or slug
func (c *ModrinthClient) GetProject(ctx context.Context, idOrSlug string) (*Project, error) {
	var project Project
	if err := c.get(ctx, "/project/"+url.PathEscape(idOrSlug), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjects fetches many projects in batches. Unknown ids are simply absent.
func (c *ModrinthClient) GetProjects(ctx context.Context, ids []string) ([]Project, error) {
	var all []Project
	for _, chunk := range chunks(ids, modrinthBatchSize) {
		var projects []Project
		if err := c.get(ctx, "/projects", idsQuery(chunk), &projects); err != nil {
			return nil, err
		}
		all = append(all, projects...)
	}
	return all, nil
}

// GetVersions fetches many versions in batches
func (c *ModrinthClient) GetVersions(ctx context.Context, ids []string) ([]ProjectVersion, error) {
	var all []ProjectVersion
	for _, chunk := range chunks(ids, modrinthBatchSize) {
		var versions []ProjectVersion
		if err := c.get(ctx, "/versions", idsQuery(chunk), &versions); err != nil {
			return nil, err
		}
		all = append(all, versions...)
	}
	return all, nil
}

func idsQuery(ids []string) url.Values {
	encoded, _ := json.Marshal(ids)
	return url.Values{"ids": {string(encoded)}}
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
