package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon-dashboard/internal/storage"
	"netmon-dashboard/pkg/models"
)

func f(v float64) *float64 { return &v }

func TestAddAlertCapsAtHundred(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())
	for i := 1; i <= MaxAlerts+1; i++ {
		s.AddAlert(models.Alert{ID: fmt.Sprint(i)})
	}
	alerts := s.Alerts()
	require.Len(t, alerts, MaxAlerts)
	assert.Equal(t, "101", alerts[0].ID)
	assert.Equal(t, "2", alerts[len(alerts)-1].ID)
}

func TestSetAlertsTruncates(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())
	in := make([]models.Alert, 150)
	s.SetAlerts(in)
	assert.Len(t, s.Alerts(), MaxAlerts)
}

func TestRemoveAlertAfterResolve(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())
	s.SetAlerts([]models.Alert{{ID: "9"}, {ID: "7"}, {ID: "3"}})

	assert.True(t, s.RemoveAlert("7"))
	assert.False(t, s.RemoveAlert("7"))

	ids := []string{}
	for _, a := range s.Alerts() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"9", "3"}, ids)
}

func TestDeviceMutations(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())
	s.SetDevices([]models.Device{
		{ID: "1", Name: "gw", Status: models.StatusUp, LatencyMs: f(3)},
		{ID: "2", Name: "nas", Status: models.StatusDown},
	})

	name := "core-gw"
	down := models.StatusDown
	d, ok := s.UpdateDevice("1", models.DevicePatch{Name: &name, Status: &down})
	require.True(t, ok)
	assert.Equal(t, "core-gw", d.Name)
	assert.Equal(t, models.StatusDown, d.Status)
	require.NotNil(t, d.LatencyMs)
	assert.Equal(t, 3.0, *d.LatencyMs)

	_, ok = s.UpdateDevice("42", models.DevicePatch{Name: &name})
	assert.False(t, ok)

	s.AddDevice(models.Device{ID: "3", Name: "printer"})
	s.AddDevice(models.Device{ID: "3", Name: "printer-2"})
	assert.Len(t, s.Devices(), 3)
	got, ok := s.Device("3")
	require.True(t, ok)
	assert.Equal(t, "printer-2", got.Name)

	assert.True(t, s.RemoveDevice("2"))
	assert.False(t, s.RemoveDevice("2"))
	assert.Len(t, s.Devices(), 2)
}

func TestDevicesReturnsCopy(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())
	s.SetDevices([]models.Device{{ID: "1", Name: "gw"}})
	d := s.Devices()
	d[0].Name = "changed"
	got, _ := s.Device("1")
	assert.Equal(t, "gw", got.Name)
}

func TestEstablishAndLogout(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := NewStore(kv)

	err := s.Establish(ctx, models.Credentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         &models.User{ID: 1, Username: "ops", Role: models.RoleAdmin},
	})
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
	require.NotNil(t, s.User())
	assert.Equal(t, "ops", s.User().Username)

	s.SetDevices([]models.Device{{ID: "1"}})
	s.AddAlert(models.Alert{ID: "1"})
	s.SetError("boom")

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User())
	assert.Empty(t, s.RefreshToken())
	assert.Empty(t, s.Devices())
	assert.Empty(t, s.Alerts())
	assert.Empty(t, s.LastError())

	_, err = kv.Get(ctx, storage.KeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = kv.Get(ctx, storage.KeyRefreshToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEstablishRejectsEmptyToken(t *testing.T) {
	s := NewStore(storage.NewMemoryKV())
	assert.Error(t, s.Establish(context.Background(), models.Credentials{}))
	assert.False(t, s.Authenticated())
}

func TestLoadRestoresPersistedToken(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, storage.KeyAccessToken, "persisted"))

	s := NewStore(kv)
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, "persisted", s.Token())
	assert.Nil(t, s.User())
}

func TestSetTokenPersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := NewStore(kv)

	require.NoError(t, s.SetToken(ctx, "t1"))
	v, err := kv.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "t1", v)

	require.NoError(t, s.SetToken(ctx, ""))
	_, err = kv.Get(ctx, storage.KeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestCheckToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(storage.NewMemoryKV())

	assert.Equal(t, TokenMissing, s.CheckToken(now, 5*time.Minute))

	require.NoError(t, s.SetToken(ctx, signed(t, now.Add(time.Hour))))
	assert.Equal(t, TokenValid, s.CheckToken(now, 5*time.Minute))

	require.NoError(t, s.SetToken(ctx, signed(t, now.Add(2*time.Minute))))
	assert.Equal(t, TokenExpiring, s.CheckToken(now, 5*time.Minute))

	require.NoError(t, s.SetToken(ctx, signed(t, now.Add(-time.Minute))))
	assert.Equal(t, TokenExpired, s.CheckToken(now, 5*time.Minute))

	require.NoError(t, s.SetToken(ctx, "not-a-jwt"))
	assert.Equal(t, TokenOpaque, s.CheckToken(now, 5*time.Minute))
}
