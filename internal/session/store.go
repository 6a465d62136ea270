// Package session holds the process-wide dashboard state: the bearer token,
// the signed-in user and the device and alert collections every view reads.
//
// A Store is created once and injected into the components that need it.
// All methods are safe for concurrent use; readers always get copies.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"netmon-dashboard/internal/storage"
	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

// MaxAlerts caps the alert collection; the oldest alerts are dropped first.
const MaxAlerts = 100

type Store struct {
	mu sync.RWMutex
	kv storage.KV

	token        string
	refreshToken string
	user         *models.User

	devices   []models.Device
	alerts    []models.Alert
	stats     models.DeviceStats
	lastError string
}

func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Load restores the persisted tokens. The user profile is not persisted and
// has to be fetched again by the caller.
func (s *Store) Load(ctx context.Context) error {
	token, err := storage.GetOr(ctx, s.kv, storage.KeyAccessToken, "")
	if err != nil {
		return err
	}
	refresh, err := storage.GetOr(ctx, s.kv, storage.KeyRefreshToken, "")
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.refreshToken = refresh
	s.mu.Unlock()

	if token != "" {
		logger.Info("Restored persisted session token")
	}
	return nil
}

// SetToken replaces the bearer token and persists it. An empty token clears
// the persisted value.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if token == "" {
		return s.kv.Delete(ctx, storage.KeyAccessToken)
	}
	return s.kv.Set(ctx, storage.KeyAccessToken, token)
}

func (s *Store) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.user = nil
		return
	}
	u := *user
	s.user = &u
}

// Establish installs the token pair and user of a successful login or
// refresh in one step. When creds carries no user the current one is kept.
func (s *Store) Establish(ctx context.Context, creds models.Credentials) error {
	if creds.AccessToken == "" {
		return errors.New("session: empty access token")
	}

	if err := s.kv.Set(ctx, storage.KeyAccessToken, creds.AccessToken); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	if creds.RefreshToken != "" {
		if err := s.kv.Set(ctx, storage.KeyRefreshToken, creds.RefreshToken); err != nil {
			return fmt.Errorf("failed to persist refresh token: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = creds.AccessToken
	if creds.RefreshToken != "" {
		s.refreshToken = creds.RefreshToken
	}
	if creds.User != nil {
		u := *creds.User
		s.user = &u
	}
	return nil
}

// Logout clears the token, the user and the persisted credentials, and
// resets the cached collections. In-memory state is cleared even when the
// persistent store fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.refreshToken = ""
	s.user = nil
	s.devices = nil
	s.alerts = nil
	s.stats = models.DeviceStats{}
	s.lastError = ""
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, storage.KeyAccessToken, storage.KeyRefreshToken); err != nil {
		return fmt.Errorf("failed to purge persisted credentials: %w", err)
	}
	return nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns a copy of the signed-in user, or nil
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a bearer token is present
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// SetError records the message shown in the dismissible error banner
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

func (s *Store) ClearError() {
	s.SetError("")
}

func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Store) SetStats(stats models.DeviceStats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

func (s *Store) Stats() models.DeviceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
