package api

import (
	"context"
	"errors"
	"net/url"
	"time"
)

const technicBaseURL = "https://api.technicpack.net"

// technicBuild is the launcher build number the API expects on every request
const technicBuild = "999"

// ErrPackNotFound is returned when Technic no longer knows a pack slug.
var ErrPackNotFound = errors.New("technic pack not found")

type TechnicClient struct {
	*client
}

func NewTechnicClient(opts Options) *TechnicClient {
	return &TechnicClient{client: newClient("technic", technicBaseURL, 5*time.Minute, opts)}
}

// TechnicModpack is a pack as the platform API describes it. Version is the
// recommended build.
type TechnicModpack struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Version     string   `json:"version"`
	Minecraft   string   `json:"minecraft"`
	Solder      string   `json:"solder"`
	Builds      []string `json:"builds,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// GetModpack fetches a pack by slug
func (c *TechnicClient) GetModpack(ctx context.Context, slug string) (*TechnicModpack, error) {
	var pack TechnicModpack
	err := c.get(ctx, "/modpack/"+url.PathEscape(slug), url.Values{"build": {technicBuild}}, &pack)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrPackNotFound
	}
	if err != nil {
		return nil, err
	}
	if pack.Error != "" {
		return nil, ErrPackNotFound
	}
	return &pack, nil
}
