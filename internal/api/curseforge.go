package api

import (
	"context"
	"time"
)

const curseForgeBaseURL = "https://api.curseforge.com"

// CurseForgeClient talks to the CurseForge core API. Every request needs an API key.
type CurseForgeClient struct {
	*client
}

func NewCurseForgeClient(apiKey string, opts Options) *CurseForgeClient {
	c := newClient("curseforge", curseForgeBaseURL, 5*time.Minute, opts)
	c.rc.SetHeader("x-api-key", apiKey)
	return &CurseForgeClient{client: c}
}

// CurseForgeMod is the subset of a mod record update checks need
type CurseForgeMod struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	LatestFiles []CurseForgeFile `json:"latestFiles"`
}

type CurseForgeFile struct {
	ID          int       `json:"id"`
	ModID       int       `json:"modId"`
	DisplayName string    `json:"displayName"`
	FileName    string    `json:"fileName"`
	ReleaseType int       `json:"releaseType"` // 1 release, 2 beta, 3 alpha
	FileDate    time.Time `json:"fileDate"`
}

// GetMods fetches several mods in one request
func (c *CurseForgeClient) GetMods(ctx context.Context, ids []int) ([]CurseForgeMod, error) {
	var resp struct {
		Data []CurseForgeMod `json:"data"`
	}
	body := map[string]any{"modIds": ids}
	if err := c.post(ctx, "/v1/mods", body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
