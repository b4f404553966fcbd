// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/services"
)

// MockCatalog is a test double for [services.Catalog]
type MockCatalog struct {
	// Results maps a search term to the records it returns
	Results map[string][]services.SongResult

	// Errs maps a search term to a forced failure
	Errs map[string]error

	// Searches records each term searched, in order
	Searches []string
}

func (m *MockCatalog) SearchSongs(ctx context.Context, term string, limit int) ([]services.SongResult, error) {
	m.Searches = append(m.Searches, term)
	if err, ok := m.Errs[term]; ok {
		return nil, err
	}
	return m.Results[term], nil
}

func (m *MockCatalog) Name() string { return "mock" }

// MockBackend is a scriptable test double for [services.TodoBackend]
type MockBackend struct {
	mu       sync.Mutex
	session  *models.Session
	todos    []models.Todo
	nextID   int64
	subs     []chan services.SessionChange
	ListErr  error
	WriteErr error

	// Calls records each method invoked, in order
	Calls []string
}

func NewMockBackend() *MockBackend {
	return &MockBackend{nextID: 1}
}

func (m *MockBackend) record(call string) {
	m.Calls = append(m.Calls, call)
}

func (m *MockBackend) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SignUp")
	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	return &models.User{ID: "user-" + email, Email: email}, nil
}

func (m *MockBackend) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SignIn")
	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	session := &models.Session{
		AccessToken:  "token-" + email,
		RefreshToken: "refresh-" + email,
		User:         models.User{ID: "user-" + email, Email: email},
	}
	m.session = session
	m.notify(session)
	return session, nil
}

func (m *MockBackend) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SignOut")
	m.session = nil
	m.notify(nil)
	return nil
}

func (m *MockBackend) Session() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *MockBackend) Subscribe() <-chan services.SessionChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan services.SessionChange, 4)
	m.subs = append(m.subs, ch)
	return ch
}

// SetSession seeds a session without emitting a change, for tests that start
// in an authenticated state.
func (m *MockBackend) SetSession(session *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
}

func (m *MockBackend) RestoreSession(session *models.Session) {
	if !session.Valid() {
		return
	}
	m.EmitSession(session)
}

// EmitSession pushes a session transition to all subscribers.
func (m *MockBackend) EmitSession(session *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	m.notify(session)
}

func (m *MockBackend) notify(session *models.Session) {
	for _, ch := range m.subs {
		select {
		case ch <- services.SessionChange{Session: session}:
		default:
		}
	}
}

func (m *MockBackend) ListTodos(ctx context.Context) ([]models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListTodos")
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]models.Todo, len(m.todos))
	copy(out, m.todos)
	return out, nil
}

func (m *MockBackend) CreateTodo(ctx context.Context, task string) (*models.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateTodo")
	if m.WriteErr != nil {
		return nil, m.WriteErr
	}
	todo := models.Todo{ID: m.nextID, Task: task}
	if m.session != nil {
		todo.UserID = m.session.User.ID
	}
	m.nextID++
	m.todos = append([]models.Todo{todo}, m.todos...)
	return &todo, nil
}

func (m *MockBackend) SetComplete(ctx context.Context, id int64, complete bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetComplete")
	if m.WriteErr != nil {
		return m.WriteErr
	}
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos[i].IsComplete = complete
			return nil
		}
	}
	return errors.New("todo not found")
}

func (m *MockBackend) SetTask(ctx context.Context, id int64, task string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SetTask")
	if m.WriteErr != nil {
		return m.WriteErr
	}
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos[i].Task = task
			return nil
		}
	}
	return errors.New("todo not found")
}

func (m *MockBackend) DeleteTodo(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteTodo")
	if m.WriteErr != nil {
		return m.WriteErr
	}
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			return nil
		}
	}
	return errors.New("todo not found")
}

func (m *MockBackend) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteAll")
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.todos = nil
	return nil
}

// Todos returns a snapshot of the mock's stored rows.
func (m *MockBackend) Todos() []models.Todo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Todo, len(m.todos))
	copy(out, m.todos)
	return out
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
