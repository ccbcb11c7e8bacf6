// Package core contains the launcher's domain model and the managers that own it.
// Managers hold the live collections; everything else reads snapshots.
package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Instance represents an installed modpack
type Instance struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	SafeName  string     `json:"safeName"`
	Root      string     `json:"-"`                 // Derived from the directory the instance was loaded from
	Pack      *PackRef   `json:"pack,omitempty"`    // Originating platform, if any
	AccountID *uuid.UUID `json:"account,omitempty"` // Account the instance is locked to (optional)
	Minecraft string     `json:"minecraft"`         // Minecraft version (e.g., "1.21.4")
	Loader    string     `json:"loader"`            // Loader type: vanilla, fabric, forge, quilt
	LoaderVer string     `json:"loaderVer"`         // Loader version
	Notes     string     `json:"notes,omitempty"`

	PlayCount  int64     `json:"playCount"`
	LastPlayed time.Time `json:"lastPlayed"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	DisableUpdateChecks bool `json:"disableUpdateChecks"`
}

// Validate checks the fields a loaded or new instance must have
func (i *Instance) Validate() error {
	if i.ID == uuid.Nil {
		return errors.New("instance has no id")
	}
	if i.Name == "" {
		return errors.New("instance has no name")
	}
	if SafeName(i.Name) == "" {
		return errors.New("instance name has no usable characters")
	}
	if i.Pack != nil {
		if err := i.Pack.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsFrom reports whether the instance was installed from platform p
func (i *Instance) IsFrom(p Platform) bool {
	return i.Pack != nil && i.Pack.Platform == p
}

// Clone returns a copy that shares no mutable state with i
func (i Instance) Clone() Instance {
	if i.Pack != nil {
		ref := *i.Pack
		i.Pack = &ref
	}
	if i.AccountID != nil {
		id := *i.AccountID
		i.AccountID = &id
	}
	return i
}

func (i Instance) key() uuid.UUID      { return i.ID }
func (i Instance) displayName() string { return i.Name }
func (i Instance) safeName() string    { return i.SafeName }
