package core

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/aayushdutt/packkeeper/internal/apperror"
	"github.com/aayushdutt/packkeeper/internal/credentials"
	"github.com/aayushdutt/packkeeper/internal/observable"
	"github.com/aayushdutt/packkeeper/internal/store"
)

// accountsFile is the on-disk layout of accounts.json
type accountsFile struct {
	Accounts []json.RawMessage `json:"accounts"`
	ActiveID string            `json:"activeId"` // ID of the active account
}

type accountsDoc struct {
	Accounts []Account `json:"accounts"`
	ActiveID string    `json:"activeId"`
}

// AccountManager handles account storage and the selected account
type AccountManager struct {
	store  *store.ListStore
	vault  credentials.Vault // nil keeps tokens in accounts.json
	logger *slog.Logger

	mu       sync.Mutex
	subject  *observable.Subject[[]Account]
	selected *observable.Subject[*Account]
}

// NewAccountManager creates a new manager. vault may be nil.
func NewAccountManager(dataDir string, vault credentials.Vault, logger *slog.Logger) *AccountManager {
	return &AccountManager{
		store:    store.NewListStore(filepath.Join(dataDir, "accounts.json")),
		vault:    vault,
		logger:   logger.With(slog.String("component", "accounts")),
		subject:  observable.NewSubject([]Account{}),
		selected: observable.NewSubject[*Account](nil),
	}
}

// LoadAll reads accounts from disk. Accounts that fail to decode or validate
// are dropped and the cleaned file is written back.
func (m *AccountManager) LoadAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var file accountsFile
	if _, err := m.store.Load(&file); err != nil {
		return apperror.IO("loading accounts", err)
	}

	dirty := false
	loaded := make([]Account, 0, len(file.Accounts))
	for i, raw := range file.Accounts {
		var acc Account
		if err := json.Unmarshal(raw, &acc); err != nil {
			m.logger.Warn("dropping undecodable account", slog.Int("index", i), slog.Any("error", err))
			dirty = true
			continue
		}
		if m.resolveTokens(&acc) {
			dirty = true
		}
		if err := acc.Validate(); err != nil {
			m.logger.Warn("dropping invalid account", slog.String("username", acc.Username), slog.Any("error", err))
			dirty = true
			continue
		}
		if indexOfAccount(loaded, acc.ID) >= 0 {
			m.logger.Warn("dropping duplicate account", slog.String("id", acc.ID.String()))
			dirty = true
			continue
		}
		loaded = append(loaded, acc)
	}

	sel := resolveSelection(loaded, file.ActiveID)
	if (sel == nil && file.ActiveID != "") || (sel != nil && sel.ID.String() != file.ActiveID) {
		dirty = true
	}

	if dirty {
		if err := m.save(loaded, sel); err != nil {
			m.logger.Warn("could not save cleaned accounts", slog.Any("error", err))
		}
	}

	m.subject.Publish(loaded)
	m.selected.Publish(sel)
	m.logger.Debug("loaded accounts", slog.Int("count", len(loaded)))
	return nil
}

// resolveTokens moves tokens found in the file into the vault, or fills them from
// it. It reports whether the file needs rewriting.
func (m *AccountManager) resolveTokens(acc *Account) bool {
	if m.vault == nil || acc.Type != AccountTypeMSA {
		return false
	}
	id := acc.ID.String()

	if acc.AccessToken != "" || acc.MSARefreshToken != "" {
		err := m.vault.Set(id, credentials.Tokens{AccessToken: acc.AccessToken, MSARefreshToken: acc.MSARefreshToken})
		if err != nil {
			m.logger.Warn("could not move tokens to keyring", slog.String("username", acc.Username), slog.Any("error", err))
			return false
		}
		return true
	}

	t, err := m.vault.Get(id)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			m.logger.Warn("could not read tokens from keyring", slog.String("username", acc.Username), slog.Any("error", err))
		}
		return false
	}
	acc.AccessToken = t.AccessToken
	acc.MSARefreshToken = t.MSARefreshToken
	return false
}

// save writes accounts.json. Tokens held by the vault are left out of the file.
func (m *AccountManager) save(accounts []Account, sel *Account) error {
	doc := accountsDoc{Accounts: make([]Account, len(accounts))}
	for i, acc := range accounts {
		acc = acc.Clone()
		if m.vault != nil && acc.Type == AccountTypeMSA {
			acc.AccessToken = ""
			acc.MSARefreshToken = ""
		}
		doc.Accounts[i] = acc
	}
	if sel != nil {
		doc.ActiveID = sel.ID.String()
	}
	return m.store.Save(doc)
}

func (m *AccountManager) storeTokens(acc Account) error {
	if m.vault == nil || acc.Type != AccountTypeMSA {
		return nil
	}
	return m.vault.Set(acc.ID.String(), credentials.Tokens{
		AccessToken:     acc.AccessToken,
		MSARefreshToken: acc.MSARefreshToken,
	})
}

// dropTokens undoes storeTokens for an account that was never saved
func (m *AccountManager) dropTokens(id uuid.UUID) {
	if m.vault == nil {
		return
	}
	if err := m.vault.Delete(id.String()); err != nil {
		m.logger.Error("could not remove tokens", slog.String("account", id.String()), slog.Any("error", err))
	}
}

// GetAll returns the current snapshot. Callers must not modify it.
func (m *AccountManager) GetAll() []Account {
	return m.subject.Value()
}

// Get returns an account by ID
func (m *AccountManager) Get(id uuid.UUID) (Account, bool) {
	all := m.subject.Value()
	if i := indexOfAccount(all, id); i >= 0 {
		return all[i], true
	}
	return Account{}, false
}

// ByUsername finds an account ignoring case
func (m *AccountManager) ByUsername(username string) (Account, bool) {
	for _, acc := range m.subject.Value() {
		if strings.EqualFold(acc.Username, username) {
			return acc, true
		}
	}
	return Account{}, false
}

// Exists reports whether an account with id is loaded
func (m *AccountManager) Exists(id uuid.UUID) bool {
	return indexOfAccount(m.subject.Value(), id) >= 0
}

// Observable exposes the account list read-only
func (m *AccountManager) Observable() observable.Observable[[]Account] {
	return m.subject
}

// Subscribe is shorthand for Observable().Subscribe
func (m *AccountManager) Subscribe(fn func([]Account)) *observable.Subscription {
	return m.subject.Subscribe(fn)
}

// Selected returns the active account, or nil
func (m *AccountManager) Selected() *Account {
	return m.selected.Value()
}

// SelectedObservable publishes the active account, or nil when none is selected
func (m *AccountManager) SelectedObservable() observable.Observable[*Account] {
	return m.selected
}

// Add stores a new account. The first account added becomes the selected one.
func (m *AccountManager) Add(acc Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.subject.Value()
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	if indexOfAccount(all, acc.ID) >= 0 {
		return Account{}, apperror.Conflict("account", acc.ID.String())
	}
	if err := acc.Validate(); err != nil {
		return Account{}, apperror.ValidationFailed("account", err.Error())
	}
	acc = acc.Clone()

	if err := m.storeTokens(acc); err != nil {
		return Account{}, apperror.IO("storing tokens", err)
	}

	next := withAppended(all, acc)
	sel := m.selected.Value()
	if sel == nil {
		sel = &next[len(next)-1]
	}
	if err := m.save(next, sel); err != nil {
		m.dropTokens(acc.ID)
		return Account{}, apperror.IO("saving accounts", err)
	}

	m.subject.Publish(next)
	if sel != m.selected.Value() {
		m.selected.Publish(copyAccount(sel))
	}
	m.logger.Info("added account", slog.String("username", acc.Username))
	return acc, nil
}

// Update replaces a stored account
func (m *AccountManager) Update(acc Account) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.subject.Value()
	i := indexOfAccount(all, acc.ID)
	if i < 0 {
		return Account{}, apperror.NotFound("account", acc.ID.String())
	}
	if err := acc.Validate(); err != nil {
		return Account{}, apperror.ValidationFailed("account", err.Error())
	}
	acc = acc.Clone()

	if err := m.storeTokens(acc); err != nil {
		return Account{}, apperror.IO("storing tokens", err)
	}

	next := withReplaced(all, i, acc)
	sel := m.selected.Value()
	isSelected := sel != nil && sel.ID == acc.ID
	if isSelected {
		sel = &acc
	}
	if err := m.save(next, sel); err != nil {
		if restoreErr := m.storeTokens(all[i]); restoreErr != nil {
			m.logger.Error("could not restore tokens", slog.String("username", acc.Username), slog.Any("error", restoreErr))
		}
		return Account{}, apperror.IO("saving accounts", err)
	}

	m.subject.Publish(next)
	if isSelected {
		m.selected.Publish(copyAccount(sel))
	}
	return acc, nil
}

// Remove deletes an account. If it was selected, selection falls back to the
// first remaining account.
func (m *AccountManager) Remove(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.subject.Value()
	i := indexOfAccount(all, id)
	if i < 0 {
		return apperror.NotFound("account", id.String())
	}

	next := withRemoved(all, i)
	sel := m.selected.Value()
	selChanged := sel != nil && sel.ID == id
	if selChanged {
		sel = resolveSelection(next, "")
	}
	if err := m.save(next, sel); err != nil {
		return apperror.IO("saving accounts", err)
	}
	if m.vault != nil {
		if err := m.vault.Delete(id.String()); err != nil {
			m.logger.Warn("could not delete tokens", slog.String("id", id.String()), slog.Any("error", err))
		}
	}

	m.subject.Publish(next)
	if selChanged {
		m.selected.Publish(sel)
	}
	m.logger.Info("removed account", slog.String("username", all[i].Username))
	return nil
}

// SwitchAccount selects the account with id. nil clears the selection. An
// unknown id falls back to the first account and returns ErrNotFound.
func (m *AccountManager) SwitchAccount(id *uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.subject.Value()
	var sel *Account
	var result error

	switch {
	case id == nil:
	case indexOfAccount(all, *id) >= 0:
		sel = copyAccount(&all[indexOfAccount(all, *id)])
	default:
		sel = resolveSelection(all, "")
		result = apperror.NotFound("account", id.String())
	}

	if err := m.save(all, sel); err != nil {
		return apperror.IO("saving accounts", err)
	}
	m.selected.Publish(sel)
	return result
}

// resolveSelection picks the stored id if it is loaded, else the first account
func resolveSelection(accounts []Account, activeID string) *Account {
	for i := range accounts {
		if accounts[i].ID.String() == activeID {
			return copyAccount(&accounts[i])
		}
	}
	if len(accounts) > 0 {
		return copyAccount(&accounts[0])
	}
	return nil
}

func copyAccount(a *Account) *Account {
	if a == nil {
		return nil
	}
	c := a.Clone()
	return &c
}

func indexOfAccount(accounts []Account, id uuid.UUID) int {
	for i := range accounts {
		if accounts[i].ID == id {
			return i
		}
	}
	return -1
}
