// Package snippet stores user snippets and the flags they were run with.
//
// Only the inputs of an evaluation are stored, never the resulting graph:
// graphs are cheap to rebuild and depend on the engine version.
//
// Backends:
//   - [MemoryStore]: process-local, for development and tests
//   - [FileStore]: one JSON file per snippet, for the CLI
//   - [MongoStore]: a MongoDB collection, for shared playground servers
//
// Usage:
//
//	s, err := snippet.New("cycle", "this.self = this")
//	if err != nil {
//	    return err
//	}
//	if err := store.Save(ctx, s); err != nil {
//	    return err
//	}
//	got, err := store.Get(ctx, s.ID)
package snippet

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a snippet does not exist.
var ErrNotFound = errors.New("snippet not found")

// Snippet is a saved piece of code together with its build flags.
type Snippet struct {
	ID               string    `json:"id" bson:"_id"`
	Name             string    `json:"name" bson:"name"`
	Code             string    `json:"code" bson:"code"`
	ShowBuiltins     bool      `json:"show_builtins" bson:"show_builtins"`
	ShowAllFunctions bool      `json:"show_all_functions" bson:"show_all_functions"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}

// New creates a snippet with a fresh id.
func New(name, code string) (*Snippet, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return &Snippet{
		ID:        id.String(),
		Name:      strings.TrimSpace(name),
		Code:      code,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}, nil
}

// Store is the interface for snippet storage backends.
type Store interface {
	// Save inserts or replaces a snippet. The snippet must have an ID.
	Save(ctx context.Context, s *Snippet) error

	// Get returns the snippet with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Snippet, error)

	// List returns all snippets, newest first.
	List(ctx context.Context) ([]*Snippet, error)

	// Delete removes a snippet. It returns ErrNotFound if none existed.
	Delete(ctx context.Context, id string) error

	// Close releases the backend's resources.
	Close() error
}

// errNoID is returned by Save for snippets without an id.
var errNoID = errors.New("snippet has no id")

func (s *Snippet) clone() *Snippet {
	c := *s
	return &c
}

// sortNewest orders snippets newest first, breaking ties by id.
func sortNewest(list []*Snippet) {
	slices.SortFunc(list, func(a, b *Snippet) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
