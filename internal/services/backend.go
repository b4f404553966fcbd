// Hosted backend implementation of [TodoBackend]
//
// Speaks the backend's REST contract: email+password auth under /auth/v1 and
// table access under /rest/v1. Every table operation is scoped server-side by
// the backend's row policies; this client never filters reads by identity.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/shared"
	"golang.org/x/oauth2"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	todosResource = "/todos"
)

// BackendService implements [TodoBackend] against a hosted
// auth-plus-table-API backend.
type BackendService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu      sync.Mutex
	session *models.Session
	tokens  oauth2.TokenSource
	subs    []chan SessionChange
}

// NewBackendService creates a backend client for the given project URL and public API key.
//
// Both parameters come from configuration and are required; proceeding with
// undefined connection values would fail on every request with confusing
// errors, so this constructor rejects them up front.
func NewBackendService(baseURL, apiKey string, client *http.Client) (*BackendService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: backend URL is required", shared.ErrInvalidConfig)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: backend API key is required", shared.ErrInvalidConfig)
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &BackendService{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: client,
	}, nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// SignUp registers a new user with the backend's auth service.
//
// A successful sign-up does not establish a session: the backend requires a
// confirmation step before the first sign-in.
func (s *BackendService) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrInvalidInput)
	}

	body, err := s.doAuth(ctx, "/signup", credentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse signup response: %w", err)
	}

	return &user, nil
}

// SignIn authenticates with email and password, establishes the session, and
// notifies subscribers of the transition.
func (s *BackendService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", shared.ErrInvalidInput)
	}

	body, err := s.doAuth(ctx, "/token?grant_type=password", credentialsRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response", shared.ErrAuthFailed)
	}

	session := &models.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		User:         tok.User,
	}

	s.setSession(session)
	return session, nil
}

// SignOut revokes the session with the backend and clears it locally.
//
// The local session is cleared even when revocation fails; a dead token must
// not keep the client in the authenticated view mode.
func (s *BackendService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		return nil
	}

	var revokeErr error
	logoutURL := s.baseURL + authPath + "/logout"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, logoutURL, nil)
	if err != nil {
		revokeErr = fmt.Errorf("failed to create request: %w", err)
	} else {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			revokeErr = fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	s.setSession(nil)
	return revokeErr
}

// Session returns the current session, or nil when unauthenticated.
func (s *BackendService) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// RestoreSession installs a previously persisted session and notifies
// subscribers, allowing CLI invocations to stay signed in across processes.
func (s *BackendService) RestoreSession(session *models.Session) {
	if !session.Valid() {
		return
	}
	s.setSession(session)
}

// Subscribe returns a channel of session transitions.
//
// Sends are non-blocking: a subscriber that stops draining misses updates
// rather than wedging auth operations.
func (s *BackendService) Subscribe() <-chan SessionChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan SessionChange, 4)
	s.subs = append(s.subs, ch)
	return ch
}

// setSession swaps the session, rebuilds the token source, and notifies.
func (s *BackendService) setSession(session *models.Session) {
	s.mu.Lock()
	s.session = session
	if session != nil {
		seed := &oauth2.Token{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			Expiry:       session.ExpiresAt,
		}
		s.tokens = oauth2.ReuseTokenSource(seed, &refreshTokenSource{svc: s})
	} else {
		s.tokens = nil
	}
	subs := make([]chan SessionChange, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- SessionChange{Session: session}:
		default:
		}
	}
}

// refreshTokenSource exchanges the session's refresh token for a new access
// token via the backend's refresh grant. Wrapped by [oauth2.ReuseTokenSource]
// so exchanges only happen once the current token expires.
type refreshTokenSource struct {
	svc *BackendService
}

func (r *refreshTokenSource) Token() (*oauth2.Token, error) {
	r.svc.mu.Lock()
	session := r.svc.session
	r.svc.mu.Unlock()

	if session == nil || session.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token available", shared.ErrRefreshFailed)
	}

	payload := map[string]string{"refresh_token": session.RefreshToken}
	body, err := r.svc.doAuth(context.Background(), "/token?grant_type=refresh_token", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: failed to parse refresh response: %v", shared.ErrRefreshFailed, err)
	}

	return &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

// accessToken returns a live access token, refreshing through the token
// source when expired. A refresh that rotates the token updates the session
// and notifies subscribers (identity stays present).
func (s *BackendService) accessToken() (string, error) {
	s.mu.Lock()
	session := s.session
	tokens := s.tokens
	s.mu.Unlock()

	if session == nil || tokens == nil {
		return "", shared.ErrNoSession
	}

	tok, err := tokens.Token()
	if err != nil {
		return "", err
	}

	if tok.AccessToken != session.AccessToken {
		refreshed := &models.Session{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    tok.Expiry,
			User:         session.User,
		}
		s.setSession(refreshed)
	}

	return tok.AccessToken, nil
}

// doAuth issues a POST to the auth service and returns the raw success body.
func (s *BackendService) doAuth(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+authPath+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthFailed, remoteMessage(body, resp.StatusCode))
	}

	return body, nil
}

// doRest issues a request against the table API. When out is non-nil the
// response body is decoded into it.
func (s *BackendService) doRest(ctx context.Context, method, path string, payload, out any) error {
	token, err := s.accessToken()
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+restPath+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if out != nil {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Policy rejections land here; the remote message is surfaced as-is.
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, remoteMessage(body, resp.StatusCode))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// remoteMessage extracts the backend's error message verbatim, falling back
// to the raw body or status code when no known field is present.
func remoteMessage(body []byte, status int) string {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.Message, payload.Msg, payload.ErrorDescription, payload.Error} {
			if msg != "" {
				return msg
			}
		}
	}

	if len(body) > 0 {
		return string(body)
	}
	return fmt.Sprintf("status %d", status)
}

// ListTodos fetches all rows visible to the caller ordered by creation time
// descending. The backend's policies restrict visibility to the caller's rows.
func (s *BackendService) ListTodos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	path := todosResource + "?select=*&order=created_at.desc"
	if err := s.doRest(ctx, http.MethodGet, path, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo inserts a new row stamped with the owning identity from the
// current session. Fails before any request when unauthenticated or when the
// task text is empty.
func (s *BackendService) CreateTodo(ctx context.Context, task string) (*models.Todo, error) {
	if task == "" {
		return nil, fmt.Errorf("%w: task text is required", shared.ErrInvalidInput)
	}

	session := s.Session()
	if !session.Valid() {
		return nil, shared.ErrNotAuthenticated
	}

	payload := models.Todo{Task: task, IsComplete: false, UserID: session.User.ID}

	var created []models.Todo
	if err := s.doRest(ctx, http.MethodPost, todosResource, payload, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("%w: no row returned", shared.ErrAPIRequest)
	}

	return &created[0], nil
}

// SetComplete updates one row's completion flag by id.
func (s *BackendService) SetComplete(ctx context.Context, id int64, complete bool) error {
	path := todosResource + "?id=eq." + strconv.FormatInt(id, 10)
	return s.doRest(ctx, http.MethodPatch, path, map[string]bool{"is_complete": complete}, nil)
}

// SetTask updates one row's task text by id.
func (s *BackendService) SetTask(ctx context.Context, id int64, task string) error {
	if task == "" {
		return fmt.Errorf("%w: task text is required", shared.ErrInvalidInput)
	}
	path := todosResource + "?id=eq." + strconv.FormatInt(id, 10)
	return s.doRest(ctx, http.MethodPatch, path, map[string]string{"task": task}, nil)
}

// DeleteTodo deletes one row by id.
func (s *BackendService) DeleteTodo(ctx context.Context, id int64) error {
	path := todosResource + "?id=eq." + strconv.FormatInt(id, 10)
	return s.doRest(ctx, http.MethodDelete, path, nil, nil)
}

// DeleteAll deletes every row owned by the current identity.
//
// The filter narrows the request to the caller's rows; the backend's policies
// independently guarantee no other user's rows can be touched.
func (s *BackendService) DeleteAll(ctx context.Context) error {
	session := s.Session()
	if !session.Valid() {
		return shared.ErrNotAuthenticated
	}

	path := todosResource + "?user_id=eq." + session.User.ID
	return s.doRest(ctx, http.MethodDelete, path, nil, nil)
}

var _ TodoBackend = (*BackendService)(nil)
