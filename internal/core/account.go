package core

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeMSA     AccountType = "msa"
	AccountTypeOffline AccountType = "offline"
)

// Account represents a Minecraft account
type Account struct {
	ID              uuid.UUID   `json:"id"`
	Username        string      `json:"username"`
	Type            AccountType `json:"type"`                      // msa or offline
	AccessToken     string      `json:"accessToken,omitempty"`     // Minecraft access token
	ExpiresAt       time.Time   `json:"expiresAt"`                 // When MC token expires
	MSARefreshToken string      `json:"msaRefreshToken,omitempty"` // For refreshing MSA token

	// UI preferences, carried through untouched
	CollapsedPacks     []string `json:"collapsedPacks,omitempty"`
	CollapsedInstances []string `json:"collapsedInstances,omitempty"`
}

// IsExpired checks if the token is expired (with 5m buffer)
func (a *Account) IsExpired() bool {
	if a.Type == AccountTypeOffline {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(a.ExpiresAt)
}

// Validate performs the structural checks an account must pass to be loaded.
// Signatures are not verified; that is the auth flow's job.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return errors.New("account has no id")
	}
	if a.Username == "" {
		return errors.New("account has no username")
	}

	switch a.Type {
	case AccountTypeOffline:
		return nil
	case AccountTypeMSA:
		// An empty token means the user has to sign in again, which is not a defect.
		if a.AccessToken == "" {
			return nil
		}
		if _, _, err := jwt.NewParser().ParseUnverified(a.AccessToken, jwt.MapClaims{}); err != nil {
			return fmt.Errorf("malformed access token: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown account type %q", a.Type)
	}
}

// Clone returns a copy that shares no slices with a
func (a Account) Clone() Account {
	a.CollapsedPacks = slices.Clone(a.CollapsedPacks)
	a.CollapsedInstances = slices.Clone(a.CollapsedInstances)
	return a
}
