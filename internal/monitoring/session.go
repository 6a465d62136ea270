package monitoring

import (
	"context"
	"errors"
	"fmt"

	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/notify"
	"netmon-dashboard/internal/realtime"
	"netmon-dashboard/internal/storage"
	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

// SessionView is what presentation clients need to pick between the
// authenticated and the unauthenticated entry point
type SessionView struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	TokenState    string       `json:"token_state"`
	LastError     string       `json:"last_error,omitempty"`
}

func (o *Orchestrator) Session() SessionView {
	return SessionView{
		Authenticated: o.store.Authenticated(),
		User:          o.store.User(),
		TokenState:    o.store.CheckToken(o.now(), o.config.TokenRefreshWindow).String(),
		LastError:     o.store.LastError(),
	}
}

// Restore loads a persisted token and fetches the user it belongs to.
// A rejected token purges the session through the unauthorized hook.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if err := o.store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if !o.store.Authenticated() {
		return nil
	}

	user, err := o.backend.Me(ctx)
	if err != nil {
		if backend.IsUnauthorized(err) {
			o.HandleUnauthorized(ctx)
			return nil
		}
		return fmt.Errorf("failed to fetch current user: %w", err)
	}
	o.store.SetUser(user)
	o.log.Info("Session restored", logger.String("username", username(user)))
	return nil
}

// Login authenticates against the backend and establishes the session.
// The profile is fetched separately when the login answer omits it.
func (o *Orchestrator) Login(ctx context.Context, user, password string) (*models.User, error) {
	creds, err := o.backend.Login(ctx, user, password)
	if err != nil {
		return nil, err
	}
	if err := o.store.Establish(ctx, creds); err != nil {
		return nil, err
	}

	if creds.User == nil {
		profile, err := o.backend.Me(ctx)
		if err != nil {
			o.log.Warn("Failed to fetch user after login", logger.Err(err))
		} else {
			o.store.SetUser(profile)
		}
	}
	o.store.ClearError()

	current := o.store.User()
	if err := o.notifier.Session(notify.EventSessionLogin, username(current)); err != nil {
		o.log.Warn("Failed to publish login event", logger.Err(err))
	}
	o.hub.Broadcast(realtime.EventSession, o.Session())
	o.log.Info("User logged in", logger.String("username", username(current)))

	return current, nil
}

func (o *Orchestrator) Register(ctx context.Context, req backend.RegisterRequest) (*models.User, error) {
	return o.backend.Register(ctx, req)
}

// Logout clears the session, the live series and the device transition
// history
func (o *Orchestrator) Logout(ctx context.Context) error {
	name := username(o.store.User())
	o.poller.Invalidate()
	err := o.store.Logout(ctx)

	o.liveTracker.Reset()
	o.deviceManager.Reset()
	o.alertManager.Reset()

	if nerr := o.notifier.Session(notify.EventSessionLogout, name); nerr != nil {
		o.log.Warn("Failed to publish logout event", logger.Err(nerr))
	}
	o.hub.Broadcast(realtime.EventSession, o.Session())
	o.log.Info("User logged out", logger.String("username", name))
	return err
}

// HandleUnauthorized is the global 401 hook of the backend client
func (o *Orchestrator) HandleUnauthorized(ctx context.Context) {
	if !o.store.Authenticated() {
		return
	}
	o.log.Warn("Backend rejected the session token, purging credentials")
	if err := o.Logout(context.WithoutCancel(ctx)); err != nil {
		o.log.Error("Failed to purge credentials", logger.Err(err))
	}
}

// ReportError records a failed operation in the dismissible banner,
// skipping validation and auth errors which are not banner material
func (o *Orchestrator) ReportError(err error) {
	var verr *backend.ValidationError
	if err == nil || errors.As(err, &verr) || backend.IsUnauthorized(err) {
		return
	}
	o.store.SetError(backend.Message(err))
}

func (o *Orchestrator) Preferences(ctx context.Context) (storage.Preferences, error) {
	return storage.LoadPreferences(ctx, o.kv)
}

func (o *Orchestrator) SavePreferences(ctx context.Context, p storage.Preferences) (storage.Preferences, error) {
	if err := p.Validate(); err != nil {
		return storage.Preferences{}, &backend.ValidationError{Field: "preferences", Message: err.Error()}
	}
	return storage.SavePreferences(ctx, o.kv, p)
}

func username(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
