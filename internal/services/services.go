// package services defines clients for the external HTTP APIs
//
// the public song catalog (search) and the hosted backend (auth + todos table)
package services

import (
	"context"

	"github.com/mkessler/crate/internal/models"
)

// Catalog defines the interface for the public song catalog search API.
type Catalog interface {
	// SearchSongs issues a song search for the given term and returns the
	// flat result records. A failed request returns an error; the caller
	// decides whether that is fatal for the overall run.
	SearchSongs(ctx context.Context, term string, limit int) ([]SongResult, error)

	// Name returns the name of the catalog (e.g., "iTunes")
	Name() string
}

// SessionChange is emitted whenever the authenticated identity transitions.
// Session is nil after sign-out and non-nil after sign-in or token refresh.
type SessionChange struct {
	Session *models.Session
}

// TodoBackend defines the interface for the hosted backend's auth service and
// todos table. Row-level authorization lives entirely on the server; clients
// only stamp the owning identity on create.
type TodoBackend interface {
	// SignUp registers a new user. A successful sign-up leaves the client
	// unauthenticated: the backend sends a confirmation step first.
	SignUp(ctx context.Context, email, password string) (*models.User, error)

	// SignIn authenticates with email and password and establishes a session.
	SignIn(ctx context.Context, email, password string) (*models.Session, error)

	// SignOut revokes the current session.
	SignOut(ctx context.Context) error

	// Session returns the current session, or nil when unauthenticated.
	Session() *models.Session

	// RestoreSession installs a previously persisted session, if still valid,
	// and notifies subscribers.
	RestoreSession(session *models.Session)

	// Subscribe returns a channel of session transitions (sign-in, sign-out,
	// token refresh). The channel is never closed by the backend.
	Subscribe() <-chan SessionChange

	// ListTodos fetches all rows visible to the caller, newest first.
	ListTodos(ctx context.Context) ([]models.Todo, error)

	// CreateTodo inserts {task, owning identity, is_complete=false}.
	CreateTodo(ctx context.Context, task string) (*models.Todo, error)

	// SetComplete updates one row's completion flag by id.
	SetComplete(ctx context.Context, id int64, complete bool) error

	// SetTask updates one row's task text by id.
	SetTask(ctx context.Context, id int64, task string) error

	// DeleteTodo deletes one row by id.
	DeleteTodo(ctx context.Context, id int64) error

	// DeleteAll deletes every row owned by the current identity.
	DeleteAll(ctx context.Context) error
}
