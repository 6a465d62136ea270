package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"netmon-dashboard/internal/telemetry"
	"netmon-dashboard/pkg/models"
)

func (c *Client) devices(resp *response) ([]models.Device, error) {
	var raws []telemetry.RawRecord
	if err := decode(resp.Data(), &raws); err != nil {
		return nil, err
	}
	return telemetry.NormalizeDevices(raws), nil
}

// ListDevices fetches the device collection
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	resp, err := c.do(ctx, http.MethodGet, "/devices", nil)
	if err != nil {
		return nil, err
	}
	return c.devices(resp)
}

// RefreshDevices asks the backend to ping every known device now. The
// answer carries the re-checked devices.
func (c *Client) RefreshDevices(ctx context.Context) ([]models.Device, error) {
	resp, err := c.do(ctx, http.MethodPost, "/devices/refresh", nil)
	if err != nil {
		return nil, err
	}
	return c.devices(resp)
}

// CreateDevice adds a device manually
func (c *Client) CreateDevice(ctx context.Context, d models.NewDevice) (models.Device, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.IP = strings.TrimSpace(d.IP)
	if err := ValidateNewDevice(d); err != nil {
		return models.Device{}, err
	}
	if d.DeviceType == "" {
		d.DeviceType = models.TypeOther
	}

	resp, err := c.do(ctx, http.MethodPost, "/devices", d)
	if err != nil {
		return models.Device{}, err
	}

	var raw telemetry.RawRecord
	if err := decode(resp.Data(), &raw); err != nil {
		return models.Device{}, err
	}
	if raw == nil {
		// Backend acknowledged without echoing the record
		raw = telemetry.RawRecord{"name": d.Name, "ip_address": d.IP, "device_type": string(d.DeviceType)}
	}
	return telemetry.NormalizeDevice(raw), nil
}

// UpdateDevice sends a partial update. The returned device is nil when the
// backend does not echo the record.
func (c *Client) UpdateDevice(ctx context.Context, id string, patch models.DevicePatch) (*models.Device, error) {
	if err := required("id", strings.TrimSpace(id)); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPut, "/devices/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}

	var raw telemetry.RawRecord
	if err := decode(resp.Data(), &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	d := telemetry.NormalizeDevice(raw)
	return &d, nil
}

// DeleteDevice removes a device
func (c *Client) DeleteDevice(ctx context.Context, id string) error {
	if err := required("id", strings.TrimSpace(id)); err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodDelete, "/devices/"+url.PathEscape(id), nil); err != nil {
		return fmt.Errorf("failed to delete device %s: %w", id, err)
	}
	return nil
}
