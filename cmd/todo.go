package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mkessler/crate/internal/formatter"
	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/services"
	"github.com/mkessler/crate/internal/shared"
	"github.com/urfave/cli/v3"
)

// sessionFilePath returns the path to the persisted session, ~/.crate/session.json.
func sessionFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".crate", "session.json"), nil
}

// loadSessionFile reads the persisted session. A missing file is not an error.
func loadSessionFile() (*models.Session, error) {
	path, err := sessionFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &session, nil
}

// saveSessionFile persists the session with owner-only permissions.
func saveSessionFile(session *models.Session) error {
	path, err := sessionFilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := shared.MarshalJSON(session, true)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func removeSessionFile() error {
	path, err := sessionFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// signedInBackend returns the backend with the persisted session restored.
func (r *Runner) signedInBackend() (services.TodoBackend, error) {
	backend, err := r.resolveBackend()
	if err != nil {
		return nil, err
	}

	if backend.Session().Valid() {
		return backend, nil
	}

	session, err := loadSessionFile()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: run 'crate todo login' first", shared.ErrNotAuthenticated)
	}

	backend.RestoreSession(session)
	if !backend.Session().Valid() {
		return nil, fmt.Errorf("%w: stored session is no longer usable, run 'crate todo login'", shared.ErrNotAuthenticated)
	}
	return backend, nil
}

// credentials reads email and password from flags, prompting for the
// password when the flag is omitted.
func (r *Runner) credentials(cmd *cli.Command) (string, string, error) {
	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")

	if email == "" {
		return "", "", fmt.Errorf("%w: email is required", shared.ErrMissingArgument)
	}

	if password == "" {
		r.writePlain("Password: ")
		reader := bufio.NewReader(r.input)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	}

	if password == "" {
		return "", "", fmt.Errorf("%w: password is required", shared.ErrMissingArgument)
	}

	return email, password, nil
}

// todoID parses the id argument of a single-row command.
func todoID(cmd *cli.Command) (int64, error) {
	raw := strings.TrimSpace(cmd.StringArg("id"))
	if raw == "" {
		return 0, fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be a number, got %q", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

// TodoSignup registers a new account. No session is created: the backend
// requires email confirmation before the first sign-in.
func (r *Runner) TodoSignup(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.resolveBackend()
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("registering account", "email", email)

	user, err := backend.SignUp(ctx, email, password)
	if err != nil {
		return err
	}

	r.writePlain("✓ Account created for %s\n", user.Email)
	r.writePlain("Check your email for a confirmation link, then run 'crate todo login'\n")
	return nil
}

// TodoLogin signs in and persists the session locally.
func (r *Runner) TodoLogin(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.resolveBackend()
	if err != nil {
		return err
	}

	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("signing in", "email", email)

	session, err := backend.SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	if err := saveSessionFile(session); err != nil {
		return err
	}

	r.writePlain("✓ Signed in as %s\n", session.User.Email)
	return nil
}

// TodoLogout revokes the session and removes the local copy.
func (r *Runner) TodoLogout(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.resolveBackend()
	if err != nil {
		return err
	}

	if session, err := loadSessionFile(); err == nil && session != nil {
		backend.RestoreSession(session)
	}

	// The local copy goes away even when revocation fails server-side.
	if err := backend.SignOut(ctx); err != nil {
		r.logger.Warn("failed to revoke session", "error", err)
	}

	if err := removeSessionFile(); err != nil {
		return err
	}

	r.writePlain("✓ Signed out\n")
	return nil
}

// TodoWhoami shows the signed-in identity.
func (r *Runner) TodoWhoami(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.signedInBackend()
	if err != nil {
		return err
	}

	session := backend.Session()
	r.writePlain("%s (%s)\n", session.User.Email, session.User.ID)
	return nil
}

// TodoList lists the caller's tasks, newest first.
func (r *Runner) TodoList(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.signedInBackend()
	if err != nil {
		return err
	}

	todos, err := backend.ListTodos(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(todos, true)
	}

	if len(todos) == 0 {
		r.writePlain("No tasks. Add one with 'crate todo add <task>'\n")
		return nil
	}

	for _, todo := range todos {
		check := " "
		if todo.IsComplete {
			check = "x"
		}
		r.writePlain("%4d [%s] %s (%s)\n", todo.ID, check, todo.Task, formatter.FormatTimestamp(todo.CreatedAt))
	}
	return nil
}

// TodoAdd adds a task.
func (r *Runner) TodoAdd(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.signedInBackend()
	if err != nil {
		return err
	}

	task := strings.TrimSpace(cmd.StringArg("task"))
	if task == "" {
		return fmt.Errorf("%w: task text is required", shared.ErrMissingArgument)
	}

	todo, err := backend.CreateTodo(ctx, task)
	if err != nil {
		return err
	}

	r.writePlain("✓ Added task %d: %s\n", todo.ID, todo.Task)
	return nil
}

// TodoDone toggles a task's completion state by id.
func (r *Runner) TodoDone(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.signedInBackend()
	if err != nil {
		return err
	}

	id, err := todoID(cmd)
	if err != nil {
		return err
	}

	todos, err := backend.ListTodos(ctx)
	if err != nil {
		return err
	}

	var target *models.Todo
	for i := range todos {
		if todos[i].ID == id {
			target = &todos[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: no task with id %d", shared.ErrTodoNotFound, id)
	}

	if err := backend.SetComplete(ctx, id, !target.IsComplete); err != nil {
		return err
	}

	if target.IsComplete {
		r.writePlain("✓ Reopened task %d\n", id)
	} else {
		r.writePlain("✓ Completed task %d\n", id)
	}
	return nil
}

// TodoEdit replaces a task's text by id.
func (r *Runner) TodoEdit(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.signedInBackend()
	if err != nil {
		return err
	}

	id, err := todoID(cmd)
	if err != nil {
		return err
	}

	task := strings.TrimSpace(cmd.StringArg("task"))
	if task == "" {
		return fmt.Errorf("%w: replacement text is required", shared.ErrMissingArgument)
	}

	if err := backend.SetTask(ctx, id, task); err != nil {
		return err
	}

	r.writePlain("✓ Updated task %d\n", id)
	return nil
}

// TodoRemove deletes a task by id after confirmation.
func (r *Runner) TodoRemove(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.signedInBackend()
	if err != nil {
		return err
	}

	id, err := todoID(cmd)
	if err != nil {
		return err
	}

	if !cmd.Bool("yes") && !r.confirmAction(fmt.Sprintf("Delete task %d?", id)) {
		return shared.ErrNotConfirmed
	}

	if err := backend.DeleteTodo(ctx, id); err != nil {
		return err
	}

	r.writePlain("✓ Deleted task %d\n", id)
	return nil
}

// TodoClear deletes all of the caller's tasks after confirmation.
func (r *Runner) TodoClear(ctx context.Context, cmd *cli.Command) error {
	backend, err := r.signedInBackend()
	if err != nil {
		return err
	}

	if !cmd.Bool("yes") && !r.confirmAction("Delete ALL of your tasks?") {
		return shared.ErrNotConfirmed
	}

	if err := backend.DeleteAll(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Cleared all tasks\n")
	return nil
}
