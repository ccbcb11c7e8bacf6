package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Server is a saved dedicated-server installation
type Server struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SafeName  string    `json:"safeName"`
	Root      string    `json:"-"`
	Pack      *PackRef  `json:"pack,omitempty"`
	Minecraft string    `json:"minecraft"`
	Loader    string    `json:"loader"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the fields a server must have
func (s *Server) Validate() error {
	if s.ID == uuid.Nil {
		return errors.New("server has no id")
	}
	if s.Name == "" || SafeName(s.Name) == "" {
		return errors.New("server has no usable name")
	}
	if s.Pack != nil {
		return s.Pack.Validate()
	}
	return nil
}

// Clone returns a copy that shares no mutable state with s
func (s Server) Clone() Server {
	if s.Pack != nil {
		ref := *s.Pack
		s.Pack = &ref
	}
	return s
}

func (s Server) key() uuid.UUID      { return s.ID }
func (s Server) displayName() string { return s.Name }
func (s Server) safeName() string    { return s.SafeName }
