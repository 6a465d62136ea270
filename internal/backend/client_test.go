package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon-dashboard/pkg/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	o := Options{BaseURL: srv.URL + "/api/", Tokens: staticToken("tok")}
	for _, fn := range opts {
		fn(&o)
	}
	return NewClient(o)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListDevicesSendsBearerAndNormalizes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/devices", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": 1, "name": "gw", "ip_address": "10.0.0.1", "status": "UP", "latency_ms": 4.5},
				{"id": 2, "ip_address": "10.0.0.2", "status": "down", "latency_ms": nil},
			},
		})
	})

	devices, err := c.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "1", devices[0].ID)
	assert.Equal(t, models.StatusUp, devices[0].Status)
	assert.Equal(t, "10.0.0.2", devices[1].Name)
	assert.Nil(t, devices[1].LatencyMs)
}

func TestNestedDataEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"data": []map[string]any{{"id": "a", "severity": "critical"}}},
		})
	})
	alerts, err := c.ListAlerts(context.Background(), AlertQuery{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.LevelCritical, alerts[0].Level)
}

func TestListAlertsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CRITICAL", r.URL.Query().Get("level"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	})
	alerts, err := c.ListAlerts(context.Background(), AlertQuery{Level: "CRITICAL", Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   any
		want   string
	}{
		{"detail", http.StatusBadRequest, map[string]any{"detail": "bad subnet"}, "bad subnet"},
		{"detail list", http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{{"msg": "field required"}}}, "field required"},
		{"message", http.StatusInternalServerError, map[string]any{"message": "db down"}, "db down"},
		{"fallback", http.StatusInternalServerError, map[string]any{}, GenericErrorMessage},
		{"success false", http.StatusOK, map[string]any{"success": false, "message": "not allowed"}, "not allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := c.ListDevices(context.Background())
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, tc.want, Message(err))
			assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
		})
	}
}

func TestUnauthorizedRunsHook(t *testing.T) {
	var purged atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "expired"})
	}, func(o *Options) {
		o.OnUnauthorized = func(context.Context) { purged.Add(1) }
	})

	_, err := c.ListDevices(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), purged.Load())
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ops", body["username"])
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"access_token":  "a",
			"refresh_token": "r",
			"user":          map[string]any{"id": 3, "username": "ops", "email": "ops@example.com", "role": "admin"},
		})
	})

	creds, err := c.Login(context.Background(), " ops ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", creds.AccessToken)
	assert.Equal(t, "r", creds.RefreshToken)
	require.NotNil(t, creds.User)
	assert.Equal(t, models.RoleAdmin, creds.User.Role)
	assert.Equal(t, int64(3), creds.User.ID)
}

func TestLoginFailureEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "invalid credentials", "access_token": nil})
	})
	_, err := c.Login(context.Background(), "ops", "wrong")
	assert.Equal(t, "invalid credentials", Message(err))
}

func TestValidationSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	ctx := context.Background()

	_, err := c.Login(ctx, "", "x")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))

	_, err = c.CreateDevice(ctx, models.NewDevice{Name: "gw"})
	assert.ErrorAs(t, err, &ve)

	_, err = c.AdvancedScan(ctx, "10.0.0.0/8", 1)
	assert.ErrorAs(t, err, &ve)

	_, err = c.Refresh(ctx, "")
	assert.ErrorAs(t, err, &ve)

	assert.Equal(t, int32(0), calls.Load())
}

func TestAdvancedScan(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "192.168.1.0/24", body["subnet"])
		assert.Equal(t, 2.0, body["timeout"])
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "found 1",
			"data": map[string]any{
				"subnet":           "192.168.1.0/24",
				"total_hosts":      254,
				"discovered_count": 1,
				"devices":          []map[string]any{{"ip_address": "192.168.1.20", "status": "up", "latency_ms": 1.2, "device_type": "unknown"}},
			},
		})
	})

	res, err := c.AdvancedScan(context.Background(), "192.168.1.7/24", 2)
	require.NoError(t, err)
	assert.Equal(t, 254, res.TotalHosts)
	assert.Equal(t, 1, res.DiscoveredCount)
	assert.Equal(t, "found 1", res.Message)
	require.Len(t, res.Devices, 1)
	assert.Equal(t, "192.168.1.20", res.Devices[0].IPAddress)
}

func TestNetworkStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"bandwidth": map[string]any{"download": 54.2, "upload": 12},
				"jitter":    3.1,
				"dns":       12.5,
				"segments":  []map[string]any{{"name": "Core Network", "status": "up", "devices": 1, "latency": 5}},
			},
		})
	})
	st, err := c.NetworkStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 54.2, st.Bandwidth.Download)
	assert.Equal(t, 12.0, st.Bandwidth.Upload)
	assert.Equal(t, 3.1, st.Jitter)
	require.Len(t, st.Segments, 1)
	assert.Equal(t, 1, st.Segments[0].Devices)
}

func TestResolveAndDelete(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	ctx := context.Background()
	require.NoError(t, c.ResolveAlert(ctx, "7"))
	require.NoError(t, c.DeleteDevice(ctx, "3"))
	assert.Equal(t, []string{"PUT /api/alerts/7/resolve", "DELETE /api/devices/3"}, paths)
}

func TestMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": map[string]any{"id": 9, "username": "v", "role": "viewer"}})
	})
	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v", u.Username)
	assert.Equal(t, models.RoleViewer, u.Role)
}
