// Package credentials keeps account tokens out of accounts.json.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name every secret is stored under.
const Service = "packkeeper"

// ErrNotFound is returned when no secret is stored for an account.
var ErrNotFound = errors.New("credentials not found")

// Tokens are the secrets belonging to one account.
type Tokens struct {
	AccessToken     string `json:"accessToken"`
	MSARefreshToken string `json:"msaRefreshToken,omitempty"`
}

// Vault stores tokens by account id.
type Vault interface {
	Get(accountID string) (Tokens, error)
	Set(accountID string, t Tokens) error
	Delete(accountID string) error
}

// Keyring is a Vault backed by the OS secret store.
type Keyring struct {
	service string
}

// NewKeyring creates a vault under Service.
func NewKeyring() *Keyring {
	return &Keyring{service: Service}
}

func (k *Keyring) Get(accountID string) (Tokens, error) {
	secret, err := keyring.Get(k.service, accountID)
	if errors.Is(err, keyring.ErrNotFound) {
		return Tokens{}, ErrNotFound
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("reading keyring: %w", err)
	}

	var t Tokens
	if err := json.Unmarshal([]byte(secret), &t); err != nil {
		return Tokens{}, fmt.Errorf("decoding keyring entry: %w", err)
	}
	return t, nil
}

func (k *Keyring) Set(accountID string, t Tokens) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, accountID, string(data)); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// Delete removes the account's secret. Deleting a missing secret is not an error.
func (k *Keyring) Delete(accountID string) error {
	err := keyring.Delete(k.service, accountID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting keyring entry: %w", err)
	}
	return nil
}
