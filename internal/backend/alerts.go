package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"netmon-dashboard/internal/telemetry"
	"netmon-dashboard/pkg/models"
)

// AlertQuery narrows GET /alerts. Zero values are omitted.
type AlertQuery struct {
	Level string
	Limit int
}

func (q AlertQuery) encode() string {
	v := url.Values{}
	if q.Level != "" && !strings.EqualFold(q.Level, "all") {
		v.Set("level", q.Level)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListAlerts fetches alerts and normalizes them. Alerts without a timestamp
// are stamped with the time of receipt.
func (c *Client) ListAlerts(ctx context.Context, q AlertQuery) ([]models.Alert, error) {
	resp, err := c.do(ctx, http.MethodGet, "/alerts"+q.encode(), nil)
	if err != nil {
		return nil, err
	}
	var raws []telemetry.RawRecord
	if err := decode(resp.Data(), &raws); err != nil {
		return nil, err
	}
	return telemetry.NormalizeAlerts(raws, c.now()), nil
}

// CheckAlerts triggers an on-demand evaluation. The backend answers with the
// re-checked devices.
func (c *Client) CheckAlerts(ctx context.Context) ([]models.Device, error) {
	resp, err := c.do(ctx, http.MethodPost, "/alerts/check", nil)
	if err != nil {
		return nil, err
	}
	return c.devices(resp)
}

// ResolveAlert marks an alert resolved
func (c *Client) ResolveAlert(ctx context.Context, id string) error {
	if err := required("id", strings.TrimSpace(id)); err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPut, "/alerts/"+url.PathEscape(id)+"/resolve", nil); err != nil {
		return fmt.Errorf("failed to resolve alert %s: %w", id, err)
	}
	return nil
}
