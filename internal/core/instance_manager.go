package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aayushdutt/packkeeper/internal/apperror"
	"github.com/aayushdutt/packkeeper/internal/logging"
	"github.com/aayushdutt/packkeeper/internal/observable"
	"github.com/aayushdutt/packkeeper/internal/store"
)

const instanceFile = "instance.json"

// InstanceManager owns the installed instances. Readers get immutable snapshots;
// every change goes through the manager and is published as a new snapshot.
type InstanceManager struct {
	store    *store.DirStore
	accounts AccountLookup
	logger   *slog.Logger
	perf     *logging.Perf
	now      func() time.Time

	mu      sync.Mutex // serialises mutations
	subject *observable.Subject[[]Instance]
}

// NewInstanceManager creates a new instance manager
func NewInstanceManager(dataDir string, accounts AccountLookup, logger *slog.Logger, perf *logging.Perf) *InstanceManager {
	return &InstanceManager{
		store:    store.NewDirStore(filepath.Join(dataDir, "instances"), instanceFile),
		accounts: accounts,
		logger:   logger.With(slog.String("component", "instances")),
		perf:     perf,
		now:      time.Now,
		subject:  observable.NewSubject([]Instance{}),
	}
}

// LoadAll reads every instance from disk and publishes the result once.
// Instances that fail to read, decode or validate are logged and skipped.
func (im *InstanceManager) LoadAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer im.perf.Start("loading instances")()

	im.mu.Lock()
	defer im.mu.Unlock()

	loaded := []Instance{}
	seen := make(map[uuid.UUID]string)

	err := im.store.Scan(func(dir string, data []byte, err error) {
		log := im.logger.With(slog.String("dir", dir))
		if err != nil {
			log.Warn("skipping instance", slog.Any("error", err))
			return
		}

		inst, changed, err := im.decode(dir, data, log)
		if err != nil {
			log.Warn("skipping instance", slog.Any("error", err))
			return
		}
		if other, dup := seen[inst.ID]; dup {
			log.Warn("skipping instance with duplicate id", slog.String("id", inst.ID.String()), slog.String("first", other))
			return
		}
		seen[inst.ID] = dir

		if changed {
			if err := im.store.Write(dir, inst); err != nil {
				log.Warn("could not save migrated instance", slog.Any("error", err))
			}
		}
		loaded = append(loaded, inst)
	})
	if err != nil {
		return apperror.IO("loading instances", err)
	}

	im.logger.Debug("loaded instances", slog.Int("count", len(loaded)))
	im.subject.Publish(loaded)
	return nil
}

func (im *InstanceManager) decode(dir string, data []byte, log *slog.Logger) (Instance, bool, error) {
	m, err := MigrateDocument(data)
	if err != nil {
		return Instance{}, false, err
	}
	for _, p := range m.Discarded {
		log.Warn("dropping extra platform association", slog.String("platform", string(p)))
	}

	var inst Instance
	if err := json.Unmarshal(m.Data, &inst); err != nil {
		return Instance{}, false, fmt.Errorf("decoding %s: %w", instanceFile, err)
	}

	changed := m.Changed
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
		changed = true
	}
	if err := inst.Validate(); err != nil {
		return Instance{}, false, err
	}

	inst.Root = im.store.Path(dir)
	if inst.SafeName != dir {
		inst.SafeName = dir
		changed = true
	}
	if inst.AccountID != nil && (im.accounts == nil || !im.accounts.Exists(*inst.AccountID)) {
		log.Info("clearing lock to unknown account", slog.String("account", inst.AccountID.String()))
		inst.AccountID = nil
		changed = true
	}
	return inst, changed, nil
}

// GetAll returns the current snapshot. Callers must not modify it.
func (im *InstanceManager) GetAll() []Instance {
	return im.subject.Value()
}

// Sorted returns a copy of the snapshot ordered by name, ignoring case
func (im *InstanceManager) Sorted() []Instance {
	out := slices.Clone(im.subject.Value())
	slices.SortStableFunc(out, func(a, b Instance) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

// Get returns an instance by ID
func (im *InstanceManager) Get(id uuid.UUID) (Instance, bool) {
	all := im.subject.Value()
	if i := indexOf(all, id); i >= 0 {
		return all[i], true
	}
	return Instance{}, false
}

// ByName finds an instance by display name, ignoring case
func (im *InstanceManager) ByName(name string) (Instance, bool) {
	for _, inst := range im.subject.Value() {
		if strings.EqualFold(inst.Name, name) {
			return inst, true
		}
	}
	return Instance{}, false
}

// BySafeName finds an instance by its directory name
func (im *InstanceManager) BySafeName(safeName string) (Instance, bool) {
	for _, inst := range im.subject.Value() {
		if strings.EqualFold(inst.SafeName, safeName) {
			return inst, true
		}
	}
	return Instance{}, false
}

// NameTaken reports whether name collides with an existing instance or directory
func (im *InstanceManager) NameTaken(name string) bool {
	_, err := validateName("instance", name, im.subject.Value(), uuid.Nil, im.store.Exists)
	return errors.Is(err, apperror.ErrConflict)
}

// Observable exposes the instance collection read-only
func (im *InstanceManager) Observable() observable.Observable[[]Instance] {
	return im.subject
}

// Subscribe is shorthand for Observable().Subscribe
func (im *InstanceManager) Subscribe(fn func([]Instance)) *observable.Subscription {
	return im.subject.Subscribe(fn)
}

// Add creates the instance's directory and document. A zero ID is replaced
// with a fresh one.
func (im *InstanceManager) Add(inst Instance) (Instance, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	all := im.subject.Value()
	if inst.ID == uuid.Nil {
		inst.ID = uuid.New()
	} else if indexOf(all, inst.ID) >= 0 {
		return Instance{}, apperror.Conflict("instance id", inst.ID.String())
	}

	safe, err := validateName("instance", inst.Name, all, uuid.Nil, im.store.Exists)
	if err != nil {
		return Instance{}, err
	}
	inst = inst.Clone()
	inst.Name = strings.TrimSpace(inst.Name)
	inst.SafeName = safe
	inst.Root = im.store.Path(safe)
	now := im.now()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = now
	}
	inst.UpdatedAt = now
	if err := inst.Validate(); err != nil {
		return Instance{}, apperror.ValidationFailed("instance", err.Error())
	}
	if inst.AccountID != nil && (im.accounts == nil || !im.accounts.Exists(*inst.AccountID)) {
		return Instance{}, apperror.ValidationFailed("account", "instance is locked to an unknown account")
	}

	if err := im.store.Create(safe); err != nil {
		if errors.Is(err, store.ErrExists) {
			return Instance{}, apperror.Conflict("instance directory", safe)
		}
		return Instance{}, apperror.IO("creating instance", err)
	}
	if err := im.store.Write(safe, inst); err != nil {
		im.store.Remove(safe)
		return Instance{}, apperror.IO("saving instance", err)
	}

	im.subject.Publish(withAppended(all, inst))
	im.logger.Info("added instance", slog.String("name", inst.Name), slog.String("id", inst.ID.String()))
	return inst, nil
}

// Update saves changes to an existing instance. Name, safe name, root and
// creation time cannot be changed here; use Rename.
func (im *InstanceManager) Update(inst Instance) (Instance, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	all := im.subject.Value()
	i := indexOf(all, inst.ID)
	if i < 0 {
		return Instance{}, apperror.NotFound("instance", inst.ID.String())
	}
	cur := all[i]

	inst = inst.Clone()
	inst.Name = cur.Name
	inst.SafeName = cur.SafeName
	inst.Root = cur.Root
	inst.CreatedAt = cur.CreatedAt
	inst.UpdatedAt = im.now()
	if err := inst.Validate(); err != nil {
		return Instance{}, apperror.ValidationFailed("instance", err.Error())
	}
	if inst.AccountID != nil && (im.accounts == nil || !im.accounts.Exists(*inst.AccountID)) {
		return Instance{}, apperror.ValidationFailed("account", "instance is locked to an unknown account")
	}

	if err := im.store.Write(inst.SafeName, inst); err != nil {
		return Instance{}, apperror.IO("saving instance", err)
	}
	im.subject.Publish(withReplaced(all, i, inst))
	return inst, nil
}

// Rename changes the display name and moves the directory to the new safe name
func (im *InstanceManager) Rename(id uuid.UUID, newName string) (Instance, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	all := im.subject.Value()
	i := indexOf(all, id)
	if i < 0 {
		return Instance{}, apperror.NotFound("instance", id.String())
	}
	cur := all[i]

	// The instance's own directory is not a collision.
	dirTaken := func(dir string) bool {
		return !strings.EqualFold(dir, cur.SafeName) && im.store.Exists(dir)
	}
	safe, err := validateName("instance", newName, all, id, dirTaken)
	if err != nil {
		return Instance{}, err
	}

	next := cur.Clone()
	next.Name = strings.TrimSpace(newName)
	next.SafeName = safe
	next.Root = im.store.Path(safe)
	next.UpdatedAt = im.now()

	moved := safe != cur.SafeName
	if moved {
		if err := im.store.Move(cur.SafeName, safe); err != nil {
			return Instance{}, apperror.IO("moving instance", err)
		}
	}
	if err := im.store.Write(safe, next); err != nil {
		if moved {
			if backErr := im.store.Move(safe, cur.SafeName); backErr != nil {
				im.logger.Error("could not restore instance directory", slog.String("dir", safe), slog.Any("error", backErr))
			}
		}
		return Instance{}, apperror.IO("saving instance", err)
	}

	im.subject.Publish(withReplaced(all, i, next))
	im.logger.Info("renamed instance", slog.String("from", cur.Name), slog.String("to", next.Name))
	return next, nil
}

// Remove deletes the instance's directory tree
func (im *InstanceManager) Remove(id uuid.UUID) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	all := im.subject.Value()
	i := indexOf(all, id)
	if i < 0 {
		return apperror.NotFound("instance", id.String())
	}

	if err := im.store.Remove(all[i].SafeName); err != nil {
		return apperror.IO("removing instance", err)
	}
	im.subject.Publish(withRemoved(all, i))
	im.logger.Info("removed instance", slog.String("name", all[i].Name))
	return nil
}

// Clone copies an instance's whole directory under a new name. The copy gets a
// new ID and starts with no play history.
func (im *InstanceManager) Clone(id uuid.UUID, newName string) (Instance, error) {
	defer im.perf.Start("cloning instance")()

	im.mu.Lock()
	defer im.mu.Unlock()

	all := im.subject.Value()
	i := indexOf(all, id)
	if i < 0 {
		return Instance{}, apperror.NotFound("instance", id.String())
	}
	src := all[i]

	safe, err := validateName("instance", newName, all, uuid.Nil, im.store.Exists)
	if err != nil {
		return Instance{}, err
	}

	if err := im.store.Copy(src.SafeName, safe); err != nil {
		if errors.Is(err, store.ErrExists) {
			return Instance{}, apperror.Conflict("instance directory", safe)
		}
		return Instance{}, apperror.IO("copying instance", err)
	}

	now := im.now()
	clone := src.Clone()
	clone.ID = uuid.New()
	clone.Name = strings.TrimSpace(newName)
	clone.SafeName = safe
	clone.Root = im.store.Path(safe)
	clone.PlayCount = 0
	clone.LastPlayed = time.Time{}
	clone.CreatedAt = now
	clone.UpdatedAt = now

	if err := im.store.Write(safe, clone); err != nil {
		im.store.Remove(safe)
		return Instance{}, apperror.IO("saving cloned instance", err)
	}

	im.subject.Publish(withAppended(all, clone))
	im.logger.Info("cloned instance", slog.String("from", src.Name), slog.String("to", clone.Name))
	return clone, nil
}

// UpdateLastPlayed records a launch of the instance
func (im *InstanceManager) UpdateLastPlayed(id uuid.UUID) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	all := im.subject.Value()
	i := indexOf(all, id)
	if i < 0 {
		return apperror.NotFound("instance", id.String())
	}

	next := all[i].Clone()
	next.PlayCount++
	next.LastPlayed = im.now()

	if err := im.store.Write(next.SafeName, next); err != nil {
		return apperror.IO("saving instance", err)
	}
	im.subject.Publish(withReplaced(all, i, next))
	return nil
}
