// Package session keeps the signed-in user and bearer token, persisted next to the global
// config so every command shares one login.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"kanban-cli/internal/api"
	"kanban-cli/internal/model"
	"kanban-cli/internal/store"
	"kanban-cli/internal/validation"
)

const fileName = "session.json"

// ErrNotLoggedIn is returned by operations that need a session when none is present.
var ErrNotLoggedIn = errors.New("not logged in (run: kanban login)")

// Authenticator is the part of the backend that issues tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.AuthResult, error)
	Register(ctx context.Context, creds api.Credentials) (api.AuthResult, error)
}

type persisted struct {
	Token     string     `json:"token"`
	User      model.User `json:"user"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	SavedAt   time.Time  `json:"savedAt"`
}

// Context is the explicit replacement for a process-wide token: it is constructed once,
// passed to the API client as its TokenSource and to commands that need the user.
type Context struct {
	mu      sync.RWMutex
	dir     string
	token   string
	user    model.User
	expires time.Time

	now func() time.Time
	log *zap.Logger
}

type Option func(*Context)

func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns an empty session stored under dir (usually store.ConfigDir()).
func New(dir string, opts ...Option) *Context {
	c := &Context{dir: dir, now: time.Now, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Context) path() string { return filepath.Join(c.dir, fileName) }

// Init hydrates the session from disk. A missing file, an unreadable file or an expired
// token all leave the session empty; only I/O errors other than "not found" are returned.
func (c *Context) Init() error {
	b, err := os.ReadFile(c.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var p persisted
	if err := json.Unmarshal(b, &p); err != nil {
		c.log.Warn("ignoring unreadable session file", zap.String("path", c.path()), zap.Error(err))
		return nil
	}
	exp := tokenExpiry(p.Token)
	if strings.TrimSpace(p.Token) == "" || (!exp.IsZero() && !c.now().Before(exp)) {
		c.log.Debug("stored session expired", zap.Time("expiresAt", exp))
		return nil
	}
	c.mu.Lock()
	c.token, c.user, c.expires = p.Token, p.User, exp
	c.mu.Unlock()
	return nil
}

// Token implements api.TokenSource. An expired token reads as empty.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.expires.IsZero() && !c.now().Before(c.expires) {
		return ""
	}
	return c.token
}

func (c *Context) User() (model.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.token != ""
}

func (c *Context) Authenticated() bool { return c.Token() != "" }

// ExpiresAt is the token's exp claim, zero when the token carries none.
func (c *Context) ExpiresAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expires
}

// Login validates the credentials, exchanges them for a token and persists the result.
func (c *Context) Login(ctx context.Context, auth Authenticator, email, password string) (model.User, error) {
	creds := api.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := validation.Default().Struct(creds); err != nil {
		return model.User{}, err
	}
	res, err := auth.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return model.User{}, err
	}
	if err := c.set(res); err != nil {
		return model.User{}, err
	}
	return res.User, nil
}

func (c *Context) Register(ctx context.Context, auth Authenticator, creds api.Credentials) (model.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	creds.Username = strings.TrimSpace(creds.Username)
	if err := validation.Default().Struct(creds); err != nil {
		return model.User{}, err
	}
	res, err := auth.Register(ctx, creds)
	if err != nil {
		return model.User{}, err
	}
	if res.Token == "" {
		return res.User, nil
	}
	if err := c.set(res); err != nil {
		return model.User{}, err
	}
	return res.User, nil
}

// SetUser replaces the cached profile (after PUT /me) without touching the token.
func (c *Context) SetUser(u model.User) error {
	c.mu.Lock()
	if c.token == "" {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.user = u
	c.mu.Unlock()
	return c.save()
}

// Logout clears memory and removes the session file.
func (c *Context) Logout() error {
	c.mu.Lock()
	c.token, c.user, c.expires = "", model.User{}, time.Time{}
	c.mu.Unlock()
	if err := os.Remove(c.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Context) set(res api.AuthResult) error {
	if strings.TrimSpace(res.Token) == "" {
		return errors.New("login response did not include a token")
	}
	c.mu.Lock()
	c.token, c.user, c.expires = res.Token, res.User, tokenExpiry(res.Token)
	c.mu.Unlock()
	return c.save()
}

func (c *Context) save() error {
	c.mu.RLock()
	p := persisted{Token: c.token, User: c.user, SavedAt: c.now().UTC()}
	if !c.expires.IsZero() {
		exp := c.expires
		p.ExpiresAt = &exp
	}
	c.mu.RUnlock()

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if err := store.AtomicWriteFile(c.dir, "session-*.tmp", c.path(), b, 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) time.Time {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return time.Time{}
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
