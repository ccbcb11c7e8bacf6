package core

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aayushdutt/packkeeper/internal/apperror"
	"github.com/aayushdutt/packkeeper/internal/logging"
	"github.com/aayushdutt/packkeeper/internal/observable"
	"github.com/aayushdutt/packkeeper/internal/store"
)

type serversDoc struct {
	Servers []Server `json:"servers"`
}

// ServerManager owns saved servers. The list lives in servers.json; each server
// has its own directory under servers/.
type ServerManager struct {
	list   *store.ListStore
	dirs   *store.DirStore
	logger *slog.Logger
	perf   *logging.Perf
	now    func() time.Time

	mu      sync.Mutex
	subject *observable.Subject[[]Server]
}

// NewServerManager creates a manager for servers under dataDir. Call LoadAll
// before use.
func NewServerManager(dataDir string, logger *slog.Logger, perf *logging.Perf) *ServerManager {
	return &ServerManager{
		list:    store.NewListStore(filepath.Join(dataDir, "servers.json")),
		dirs:    store.NewDirStore(filepath.Join(dataDir, "servers"), ""),
		logger:  logger.With(slog.String("component", "servers")),
		perf:    perf,
		now:     time.Now,
		subject: observable.NewSubject([]Server{}),
	}
}

// LoadAll reads servers.json. Servers whose directory has gone missing or which
// fail validation are dropped and the list is saved again.
func (sm *ServerManager) LoadAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer sm.perf.Start("loading servers")()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	var doc serversDoc
	if _, err := sm.list.Load(&doc); err != nil {
		return apperror.IO("loading servers", err)
	}

	dirty := false
	loaded := make([]Server, 0, len(doc.Servers))
	for _, srv := range doc.Servers {
		if srv.ID == uuid.Nil {
			srv.ID = uuid.New()
			dirty = true
		}
		if err := srv.Validate(); err != nil {
			sm.logger.Warn("skipping server", slog.String("name", srv.Name), slog.Any("error", err))
			dirty = true
			continue
		}
		if srv.SafeName == "" {
			srv.SafeName = SafeName(srv.Name)
			dirty = true
		}
		// The directory name must be one Add could have produced.
		if srv.SafeName != SafeName(srv.SafeName) {
			sm.logger.Warn("skipping server with invalid directory name", slog.String("name", srv.Name), slog.String("dir", srv.SafeName))
			dirty = true
			continue
		}
		if !sm.dirs.Exists(srv.SafeName) {
			sm.logger.Warn("skipping server with missing directory", slog.String("name", srv.Name), slog.String("dir", srv.SafeName))
			dirty = true
			continue
		}
		if indexOf(loaded, srv.ID) >= 0 {
			dirty = true
			continue
		}
		srv.Root = sm.dirs.Path(srv.SafeName)
		loaded = append(loaded, srv)
	}

	if dirty {
		if err := sm.list.Save(serversDoc{Servers: loaded}); err != nil {
			sm.logger.Warn("could not save cleaned server list", slog.Any("error", err))
		}
	}

	sm.subject.Publish(loaded)
	sm.logger.Debug("loaded servers", slog.Int("count", len(loaded)))
	return nil
}

// GetAll returns the current snapshot. Do not modify it.
func (sm *ServerManager) GetAll() []Server {
	return sm.subject.Value()
}

// Get finds a server by ID
func (sm *ServerManager) Get(id uuid.UUID) (Server, bool) {
	all := sm.subject.Value()
	if i := indexOf(all, id); i >= 0 {
		return all[i], true
	}
	return Server{}, false
}

// Observable exposes the server list to subscribers
func (sm *ServerManager) Observable() observable.Observable[[]Server] {
	return sm.subject
}

// Subscribe calls fn with the current list and again after every change
func (sm *ServerManager) Subscribe(fn func([]Server)) *observable.Subscription {
	return sm.subject.Subscribe(fn)
}

// Add creates the server's directory and saves the list
func (sm *ServerManager) Add(srv Server) (Server, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	all := sm.subject.Value()
	if srv.ID == uuid.Nil {
		srv.ID = uuid.New()
	} else if indexOf(all, srv.ID) >= 0 {
		return Server{}, apperror.Conflict("server id", srv.ID.String())
	}
	safe, err := validateName("server", srv.Name, all, uuid.Nil, sm.dirs.Exists)
	if err != nil {
		return Server{}, err
	}

	srv = srv.Clone()
	srv.Name = strings.TrimSpace(srv.Name)
	srv.SafeName = safe
	srv.Root = sm.dirs.Path(safe)
	now := sm.now()
	if srv.CreatedAt.IsZero() {
		srv.CreatedAt = now
	}
	srv.UpdatedAt = now
	if err := srv.Validate(); err != nil {
		return Server{}, apperror.ValidationFailed("server", err.Error())
	}

	if err := sm.dirs.Create(safe); err != nil {
		if errors.Is(err, store.ErrExists) {
			return Server{}, apperror.Conflict("server directory", safe)
		}
		return Server{}, apperror.IO("creating server", err)
	}
	next := withAppended(all, srv)
	if err := sm.list.Save(serversDoc{Servers: next}); err != nil {
		sm.dirs.Remove(safe)
		return Server{}, apperror.IO("saving servers", err)
	}

	sm.subject.Publish(next)
	sm.logger.Info("added server", slog.String("name", srv.Name))
	return srv, nil
}

// Update saves changes to a server. Name and directory are kept; use Rename.
func (sm *ServerManager) Update(srv Server) (Server, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	all := sm.subject.Value()
	i := indexOf(all, srv.ID)
	if i < 0 {
		return Server{}, apperror.NotFound("server", srv.ID.String())
	}
	cur := all[i]

	srv = srv.Clone()
	srv.Name = cur.Name
	srv.SafeName = cur.SafeName
	srv.Root = cur.Root
	srv.CreatedAt = cur.CreatedAt
	srv.UpdatedAt = sm.now()
	if err := srv.Validate(); err != nil {
		return Server{}, apperror.ValidationFailed("server", err.Error())
	}

	next := withReplaced(all, i, srv)
	if err := sm.list.Save(serversDoc{Servers: next}); err != nil {
		return Server{}, apperror.IO("saving servers", err)
	}
	sm.subject.Publish(next)
	return srv, nil
}

// Rename changes the display name and moves the directory to the new safe name
func (sm *ServerManager) Rename(id uuid.UUID, newName string) (Server, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	all := sm.subject.Value()
	i := indexOf(all, id)
	if i < 0 {
		return Server{}, apperror.NotFound("server", id.String())
	}
	cur := all[i]

	dirTaken := func(dir string) bool {
		return !strings.EqualFold(dir, cur.SafeName) && sm.dirs.Exists(dir)
	}
	safe, err := validateName("server", newName, all, id, dirTaken)
	if err != nil {
		return Server{}, err
	}

	srv := cur.Clone()
	srv.Name = strings.TrimSpace(newName)
	srv.SafeName = safe
	srv.Root = sm.dirs.Path(safe)
	srv.UpdatedAt = sm.now()

	moved := safe != cur.SafeName
	if moved {
		if err := sm.dirs.Move(cur.SafeName, safe); err != nil {
			return Server{}, apperror.IO("moving server", err)
		}
	}
	next := withReplaced(all, i, srv)
	if err := sm.list.Save(serversDoc{Servers: next}); err != nil {
		if moved {
			if backErr := sm.dirs.Move(safe, cur.SafeName); backErr != nil {
				sm.logger.Error("could not restore server directory", slog.String("dir", safe), slog.Any("error", backErr))
			}
		}
		return Server{}, apperror.IO("saving servers", err)
	}

	sm.subject.Publish(next)
	return srv, nil
}

// Remove deletes the server's directory tree, then drops it from the list
func (sm *ServerManager) Remove(id uuid.UUID) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	all := sm.subject.Value()
	i := indexOf(all, id)
	if i < 0 {
		return apperror.NotFound("server", id.String())
	}

	if err := sm.dirs.Remove(all[i].SafeName); err != nil {
		return apperror.IO("removing server", err)
	}
	next := withRemoved(all, i)
	if err := sm.list.Save(serversDoc{Servers: next}); err != nil {
		// The directory is gone; the next load drops the entry.
		return apperror.IO("saving servers", err)
	}

	sm.subject.Publish(next)
	sm.logger.Info("removed server", slog.String("name", all[i].Name))
	return nil
}

// Clone copies a server's directory under a new name and ID
func (sm *ServerManager) Clone(id uuid.UUID, newName string) (Server, error) {
	defer sm.perf.Start("cloning server")()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	all := sm.subject.Value()
	i := indexOf(all, id)
	if i < 0 {
		return Server{}, apperror.NotFound("server", id.String())
	}
	src := all[i]

	safe, err := validateName("server", newName, all, uuid.Nil, sm.dirs.Exists)
	if err != nil {
		return Server{}, err
	}
	if err := sm.dirs.Copy(src.SafeName, safe); err != nil {
		if errors.Is(err, store.ErrExists) {
			return Server{}, apperror.Conflict("server directory", safe)
		}
		return Server{}, apperror.IO("copying server", err)
	}

	now := sm.now()
	clone := src.Clone()
	clone.ID = uuid.New()
	clone.Name = strings.TrimSpace(newName)
	clone.SafeName = safe
	clone.Root = sm.dirs.Path(safe)
	clone.CreatedAt = now
	clone.UpdatedAt = now

	next := withAppended(all, clone)
	if err := sm.list.Save(serversDoc{Servers: next}); err != nil {
		sm.dirs.Remove(safe)
		return Server{}, apperror.IO("saving servers", err)
	}

	sm.subject.Publish(next)
	return clone, nil
}
