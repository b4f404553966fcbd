package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/services"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AuthView ViewState = iota
	TaskListView
	EditView
	ConfirmView
)

// confirmTarget identifies which destructive action is awaiting confirmation.
type confirmTarget struct {
	todo *models.Todo // nil means delete-all
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	backend  services.TodoBackend
	sessions <-chan services.SessionChange

	view   ViewState
	width  int
	height int

	// credential form
	emailInput    textinput.Model
	passwordInput textinput.Model
	authFocus     int  // 0 = email, 1 = password
	signup        bool // sign-up mode instead of sign-in
	authBusy      bool
	notice        string

	// task view
	session    *models.Session
	taskInput  textinput.Model
	editInput  textinput.Model
	adding     bool
	incomplete []models.Todo
	completed  []models.Todo
	cursor     int
	fetchSeq   int  // sequence token; stale list responses are discarded
	busy       bool // a mutation is outstanding; further mutations ignored
	editing    *models.Todo
	confirm    confirmTarget

	err  error
	help help.Model
	keys keyMap
}

type sessionChangedMsg struct {
	session *models.Session
}

type todosFetchedMsg struct {
	seq   int
	todos []models.Todo
	err   error
}

type authResultMsg struct {
	signup bool
	err    error
}

type mutationDoneMsg struct {
	err error
}

// NewModel creates a new TUI model with the provided backend client.
func NewModel(ctx context.Context, backend services.TodoBackend) *Model {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword

	task := textinput.New()
	task.Placeholder = "what needs doing?"
	task.CharLimit = 256

	edit := textinput.New()
	edit.CharLimit = 256

	return &Model{
		ctx:           ctx,
		backend:       backend,
		sessions:      backend.Subscribe(),
		view:          AuthView,
		emailInput:    email,
		passwordInput: password,
		taskInput:     task,
		editInput:     edit,
		help:          help.New(),
		keys:          newKeyMap(),
	}
}

// Init starts the session observer and restores an existing session if the
// backend already has one.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForSession(), textinput.Blink}

	if session := m.backend.Session(); session.Valid() {
		m.session = session
		m.view = TaskListView
		cmds = append(cmds, m.fetchTodos())
	}

	return tea.Batch(cmds...)
}

// waitForSession blocks on the backend's session channel and converts the
// next transition into a message. Re-armed after every receive.
func (m *Model) waitForSession() tea.Cmd {
	return func() tea.Msg {
		change := <-m.sessions
		return sessionChangedMsg{session: change.Session}
	}
}

// fetchTodos issues a list fetch carrying the next sequence token.
func (m *Model) fetchTodos() tea.Cmd {
	m.fetchSeq++
	seq := m.fetchSeq

	return func() tea.Msg {
		todos, err := m.backend.ListTodos(m.ctx)
		return todosFetchedMsg{seq: seq, todos: todos, err: err}
	}
}

func (m *Model) submitAuth() tea.Cmd {
	email := strings.TrimSpace(m.emailInput.Value())
	password := m.passwordInput.Value()

	if email == "" || password == "" {
		m.err = fmt.Errorf("email and password are required")
		return nil
	}

	m.err = nil
	m.notice = ""
	m.authBusy = true
	signup := m.signup

	return func() tea.Msg {
		var err error
		if signup {
			_, err = m.backend.SignUp(m.ctx, email, password)
		} else {
			_, err = m.backend.SignIn(m.ctx, email, password)
		}
		return authResultMsg{signup: signup, err: err}
	}
}

func (m *Model) signOut() tea.Cmd {
	return func() tea.Msg {
		return mutationDoneMsg{err: m.backend.SignOut(m.ctx)}
	}
}

func (m *Model) createTodo(task string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		_, err := m.backend.CreateTodo(m.ctx, task)
		return mutationDoneMsg{err: err}
	}
}

func (m *Model) toggleTodo(todo models.Todo) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return mutationDoneMsg{err: m.backend.SetComplete(m.ctx, todo.ID, !todo.IsComplete)}
	}
}

func (m *Model) saveEdit(todo models.Todo, task string) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return mutationDoneMsg{err: m.backend.SetTask(m.ctx, todo.ID, task)}
	}
}

func (m *Model) deleteTodo(todo models.Todo) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return mutationDoneMsg{err: m.backend.DeleteTodo(m.ctx, todo.ID)}
	}
}

func (m *Model) deleteAll() tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		return mutationDoneMsg{err: m.backend.DeleteAll(m.ctx)}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionChangedMsg:
		return m.handleSessionChange(msg)

	case todosFetchedMsg:
		// Discard stale responses: only the latest issued fetch may render,
		// and nothing renders after logout.
		if msg.seq != m.fetchSeq || m.session == nil {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.incomplete, m.completed = Partition(msg.todos)
		m.clampCursor()
		return m, nil

	case authResultMsg:
		m.authBusy = false
		if msg.err != nil {
			// Remote auth errors are shown to the user unmodified.
			m.err = msg.err
			return m, nil
		}
		if msg.signup {
			m.notice = "Account created. Check your email for a confirmation link, then sign in."
			m.signup = false
			m.passwordInput.SetValue("")
		}
		// Successful sign-in arrives via the session channel.
		return m, nil

	case mutationDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if m.session == nil {
			return m, nil
		}
		// Every successful mutation refetches the full list.
		return m, m.fetchTodos()

	case tea.KeyMsg:
		switch m.view {
		case AuthView:
			return m.handleAuthKeys(msg)
		case TaskListView:
			return m.handleTaskKeys(msg)
		case EditView:
			return m.handleEditKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}
	}

	return m, nil
}

// handleSessionChange drives the two mutually exclusive view modes.
func (m *Model) handleSessionChange(msg sessionChangedMsg) (tea.Model, tea.Cmd) {
	if msg.session.Valid() {
		m.session = msg.session
		m.view = TaskListView
		m.err = nil
		m.notice = ""
		return m, tea.Batch(m.fetchTodos(), m.waitForSession())
	}

	// Logout: clear rendered lists and return to the credential form.
	m.session = nil
	m.incomplete = nil
	m.completed = nil
	m.cursor = 0
	m.adding = false
	m.busy = false
	m.editing = nil
	m.view = AuthView
	m.taskInput.SetValue("")
	m.taskInput.Blur()
	m.emailInput.Focus()
	m.authFocus = 0
	return m, m.waitForSession()
}

func (m *Model) handleAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab":
		if m.authFocus == 0 {
			m.authFocus = 1
			m.emailInput.Blur()
			m.passwordInput.Focus()
		} else {
			m.authFocus = 0
			m.passwordInput.Blur()
			m.emailInput.Focus()
		}
		return m, nil
	case "ctrl+t":
		m.signup = !m.signup
		m.notice = ""
		return m, nil
	case "enter":
		if m.authBusy {
			return m, nil
		}
		return m, m.submitAuth()
	}

	var cmd tea.Cmd
	if m.authFocus == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleTaskKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.adding {
		switch msg.String() {
		case "enter":
			task := strings.TrimSpace(m.taskInput.Value())
			if task == "" {
				m.err = fmt.Errorf("task text is required")
				return m, nil
			}
			if m.busy {
				return m, nil
			}
			m.adding = false
			m.taskInput.SetValue("")
			m.taskInput.Blur()
			return m, m.createTodo(task)
		case "esc":
			m.adding = false
			m.taskInput.SetValue("")
			m.taskInput.Blur()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.taskInput, cmd = m.taskInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < m.itemCount()-1 {
			m.cursor++
		}
		return m, nil
	case "a":
		m.adding = true
		m.err = nil
		return m, m.taskInput.Focus()
	case "r":
		return m, m.fetchTodos()
	case "L":
		return m, m.signOut()
	case " ", "t":
		if m.busy {
			return m, nil
		}
		if todo := m.selectedTodo(); todo != nil {
			return m, m.toggleTodo(*todo)
		}
		return m, nil
	case "e":
		if m.busy {
			return m, nil
		}
		if todo := m.selectedTodo(); todo != nil {
			m.editing = todo
			m.editInput.SetValue(todo.Task)
			m.view = EditView
			return m, m.editInput.Focus()
		}
		return m, nil
	case "d":
		if m.busy {
			return m, nil
		}
		if todo := m.selectedTodo(); todo != nil {
			m.confirm = confirmTarget{todo: todo}
			m.view = ConfirmView
		}
		return m, nil
	case "D":
		if m.busy || m.itemCount() == 0 {
			return m, nil
		}
		m.confirm = confirmTarget{}
		m.view = ConfirmView
		return m, nil
	}

	return m, nil
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TaskListView
		m.editing = nil
		m.editInput.Blur()
		return m, nil
	case "enter":
		todo := m.editing
		task := strings.TrimSpace(m.editInput.Value())
		m.view = TaskListView
		m.editing = nil
		m.editInput.Blur()

		// Only a non-empty replacement that differs from the current text
		// produces a request.
		if todo == nil || task == "" || task == todo.Task {
			return m, nil
		}
		if m.busy {
			return m, nil
		}
		return m, m.saveEdit(*todo, task)
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "y":
		target := m.confirm
		m.confirm = confirmTarget{}
		m.view = TaskListView
		if m.busy {
			return m, nil
		}
		if target.todo != nil {
			return m, m.deleteTodo(*target.todo)
		}
		return m, m.deleteAll()
	case "n", "esc", "q":
		m.confirm = confirmTarget{}
		m.view = TaskListView
		return m, nil
	}
	return m, nil
}

// itemCount returns the number of rendered rows across both sections.
func (m *Model) itemCount() int {
	return len(m.incomplete) + len(m.completed)
}

// selectedTodo resolves the cursor to a todo; incomplete items render first.
func (m *Model) selectedTodo() *models.Todo {
	if m.cursor < len(m.incomplete) {
		return &m.incomplete[m.cursor]
	}
	idx := m.cursor - len(m.incomplete)
	if idx < len(m.completed) {
		return &m.completed[idx]
	}
	return nil
}

func (m *Model) clampCursor() {
	if count := m.itemCount(); m.cursor >= count {
		m.cursor = count - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Partition splits todos into incomplete and completed subsets, preserving
// the incoming creation-time-descending order in both.
func Partition(todos []models.Todo) (incomplete, completed []models.Todo) {
	for _, todo := range todos {
		if todo.IsComplete {
			completed = append(completed, todo)
		} else {
			incomplete = append(incomplete, todo)
		}
	}
	return incomplete, completed
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case AuthView:
		return m.renderAuth()
	case TaskListView:
		return m.renderTasks()
	case EditView:
		return m.renderEdit()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) renderAuth() string {
	var b strings.Builder

	mode := "Sign in"
	if m.signup {
		mode = "Sign up"
	}
	b.WriteString(styles.title.Render(fmt.Sprintf("crate todos · %s", mode)))
	b.WriteString("\n\n")
	b.WriteString(m.emailInput.View())
	b.WriteString("\n")
	b.WriteString(m.passwordInput.View())
	b.WriteString("\n\n")

	if m.authBusy {
		b.WriteString(styles.warn.Render("Authenticating..."))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(styles.ok.Render(m.notice))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.help.Render("tab: switch field • enter: submit • ctrl+t: toggle sign up • ctrl+c: quit"))
	return b.String()
}

func (m *Model) renderTasks() string {
	var b strings.Builder

	identity := ""
	if m.session != nil {
		identity = m.session.User.Email
	}
	b.WriteString(styles.title.Render(fmt.Sprintf("crate todos · %s", identity)))
	b.WriteString("\n\n")

	if m.adding {
		b.WriteString(m.taskInput.View())
		b.WriteString("\n\n")
	}

	b.WriteString(styles.ok.Render(fmt.Sprintf("Tasks (%d)", len(m.incomplete))))
	b.WriteString("\n")
	if len(m.incomplete) == 0 {
		b.WriteString(styles.help.Render("  nothing to do"))
		b.WriteString("\n")
	}
	for i, todo := range m.incomplete {
		b.WriteString(m.renderRow(todo, i == m.cursor, false))
	}

	b.WriteString("\n")
	b.WriteString(styles.ok.Render(fmt.Sprintf("Completed (%d)", len(m.completed))))
	b.WriteString("\n")
	for i, todo := range m.completed {
		b.WriteString(m.renderRow(todo, len(m.incomplete)+i == m.cursor, true))
	}

	if m.busy {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render("Working..."))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderRow(todo models.Todo, selected, done bool) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}

	check := "[ ]"
	task := todo.Task
	if done {
		check = "[x]"
		task = styles.done.Render(task)
	}

	return fmt.Sprintf("%s%s %s\n", cursor, check, task)
}

func (m *Model) renderEdit() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Edit task"))
	b.WriteString("\n\n")
	b.WriteString(m.editInput.View())
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render("enter: save • esc: cancel"))
	return b.String()
}

func (m *Model) renderConfirm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Confirm"))
	b.WriteString("\n\n")

	if m.confirm.todo != nil {
		b.WriteString(fmt.Sprintf("Delete %q?", m.confirm.todo.Task))
	} else {
		b.WriteString("Delete ALL of your tasks?")
	}

	b.WriteString("\n\n")
	b.WriteString(styles.help.Render("y: confirm • n: cancel"))
	return b.String()
}
