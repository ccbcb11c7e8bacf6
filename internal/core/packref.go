package core

import "fmt"

// PackRef ties an instance or server to a pack on one platform.
// ProjectID is numeric for CurseForge, FTB and modpacks.ch, a project id for
// Modrinth and a slug for Technic.
type PackRef struct {
	Platform    Platform       `json:"platform"`
	ProjectID   string         `json:"projectId"`
	VersionID   string         `json:"versionId,omitempty"`
	VersionName string         `json:"versionName,omitempty"`
	Ordinal     int64          `json:"ordinal,omitempty"` // Ranking key of the installed version
	Channel     ReleaseChannel `json:"channel,omitempty"`
}

// Validate checks the reference is usable for update checks
func (r *PackRef) Validate() error {
	if !r.Platform.Valid() {
		return fmt.Errorf("unknown platform %q", r.Platform)
	}
	if r.ProjectID == "" {
		return fmt.Errorf("%s pack reference has no project id", r.Platform)
	}
	return nil
}
