package monitoring

import (
	"context"
	"errors"
	"strings"
	"sync"

	"netmon-dashboard/internal/backend"
	"netmon-dashboard/internal/realtime"
	"netmon-dashboard/pkg/logger"
	"netmon-dashboard/pkg/models"
)

var ErrDeviceNotFound = errors.New("monitoring: device not found")

// DeviceManager forwards device mutations to the backend and mirrors them
// into the session store. It also tracks status transitions between polls.
type DeviceManager struct {
	orchestrator *Orchestrator

	mu       sync.Mutex
	statuses map[string]models.DeviceStatus
}

func NewDeviceManager(o *Orchestrator) *DeviceManager {
	return &DeviceManager{orchestrator: o, statuses: make(map[string]models.DeviceStatus)}
}

// List returns the cached device collection
func (dm *DeviceManager) List() []models.Device {
	return dm.orchestrator.store.Devices()
}

func (dm *DeviceManager) Get(id string) (models.Device, error) {
	d, ok := dm.orchestrator.store.Device(id)
	if !ok {
		return models.Device{}, ErrDeviceNotFound
	}
	return d, nil
}

// Search matches name case-insensitively or ip as a substring. An empty
// query returns every device.
func (dm *DeviceManager) Search(query string) []models.Device {
	devices := dm.List()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return devices
	}
	out := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(d.IP, q) {
			out = append(out, d)
		}
	}
	return out
}

// Fetch replaces the cached collection with the backend's
func (dm *DeviceManager) Fetch(ctx context.Context) ([]models.Device, error) {
	devices, err := dm.orchestrator.backend.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	dm.orchestrator.store.SetDevices(devices)
	return devices, nil
}

func (dm *DeviceManager) Create(ctx context.Context, nd models.NewDevice) (models.Device, error) {
	d, err := dm.orchestrator.backend.CreateDevice(ctx, nd)
	if err != nil {
		return models.Device{}, err
	}
	dm.orchestrator.store.AddDevice(d)
	dm.broadcast("created", d)
	logger.Info("Device added", logger.String("device_id", d.ID), logger.String("ip", d.IP))
	return d, nil
}

// Update applies patch remotely, then locally. The backend echo wins over
// the local merge when present.
func (dm *DeviceManager) Update(ctx context.Context, id string, patch models.DevicePatch) (models.Device, error) {
	echoed, err := dm.orchestrator.backend.UpdateDevice(ctx, id, patch)
	if err != nil {
		return models.Device{}, err
	}

	var d models.Device
	if echoed != nil {
		d = *echoed
		dm.orchestrator.store.AddDevice(d)
	} else {
		var ok bool
		if d, ok = dm.orchestrator.store.UpdateDevice(id, patch); !ok {
			return models.Device{}, ErrDeviceNotFound
		}
	}
	dm.broadcast("updated", d)
	return d, nil
}

func (dm *DeviceManager) Delete(ctx context.Context, id string) error {
	if err := dm.orchestrator.backend.DeleteDevice(ctx, id); err != nil {
		return err
	}
	dm.orchestrator.store.RemoveDevice(id)

	dm.mu.Lock()
	delete(dm.statuses, id)
	dm.mu.Unlock()

	dm.broadcast("deleted", models.Device{ID: id})
	logger.Info("Device deleted", logger.String("device_id", id))
	return nil
}

// Scan runs an advanced subnet scan. The subnet is validated before the
// request is sent.
func (dm *DeviceManager) Scan(ctx context.Context, subnet string, timeoutSeconds int) (models.ScanResult, error) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = dm.orchestrator.config.ScanTimeoutSeconds
	}
	return dm.orchestrator.backend.AdvancedScan(ctx, subnet, timeoutSeconds)
}

// SaveScanned adds a scanned host as a device named after its last octet
func (dm *DeviceManager) SaveScanned(ctx context.Context, ip string) (models.Device, error) {
	nd, err := backend.ScannedToNewDevice(ip)
	if err != nil {
		return models.Device{}, err
	}
	return dm.Create(ctx, nd)
}

// Observe compares devices with the statuses seen on the previous poll and
// reports every transition. The first observation of a device only seeds
// its status.
func (dm *DeviceManager) Observe(devices []models.Device) []models.Device {
	var changed []models.Device

	dm.mu.Lock()
	seen := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		seen[d.ID] = struct{}{}
		prev, ok := dm.statuses[d.ID]
		dm.statuses[d.ID] = d.Status
		if ok && prev != d.Status {
			changed = append(changed, d)
		}
	}
	for id := range dm.statuses {
		if _, ok := seen[id]; !ok {
			delete(dm.statuses, id)
		}
	}
	dm.mu.Unlock()

	for _, d := range changed {
		if err := dm.orchestrator.notifier.DeviceStatusChanged(d); err != nil {
			logger.Warn("Failed to publish device transition", logger.Err(err))
		}
		dm.broadcast("status_changed", d)
	}
	return changed
}

func (dm *DeviceManager) Reset() {
	dm.mu.Lock()
	dm.statuses = make(map[string]models.DeviceStatus)
	dm.mu.Unlock()
}

func (dm *DeviceManager) broadcast(action string, d models.Device) {
	dm.orchestrator.hub.Broadcast(realtime.EventDevice, map[string]any{"action": action, "device": d})
}
