package api

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

const (
	ftbBaseURL        = "https://api.feed-the-beast.com/v1/modpacks/public"
	modpacksChBaseURL = "https://api.modpacks.ch/public"
)

// ModpacksChClient reads pack manifests from the modpacks.ch API. FTB serves the
// same shape from its own host.
type ModpacksChClient struct {
	*client
}

// NewFTBClient points the client at the FTB API. Manifests stay fresh for 10 minutes.
func NewFTBClient(opts Options) *ModpacksChClient {
	return &ModpacksChClient{client: newClient("ftb", ftbBaseURL, 10*time.Minute, opts)}
}

// NewModpacksChClient points the client at modpacks.ch. Manifests stay fresh for an hour.
func NewModpacksChClient(opts Options) *ModpacksChClient {
	return &ModpacksChClient{client: newClient("modpacksch", modpacksChBaseURL, time.Hour, opts)}
}

// PackManifest lists a pack's versions
type PackManifest struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Versions []PackVersion `json:"versions"`
}

type PackVersion struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`    // Release, Beta, Alpha
	Updated int64  `json:"updated"` // unix seconds
}

// GetModpack fetches one pack manifest
func (c *ModpacksChClient) GetModpack(ctx context.Context, id int) (*PackManifest, error) {
	var manifest PackManifest
	if err := c.get(ctx, "/modpack/"+strconv.Itoa(id), nil, &manifest); err != nil {
		return nil, err
	}
	if manifest.Status == "error" {
		return nil, &StatusError{Code: http.StatusNotFound, URL: "/modpack/" + strconv.Itoa(id)}
	}
	return &manifest, nil
}
