package session

import (
	"netmon-dashboard/pkg/models"
)

// Devices returns a copy of the device collection
func (s *Store) Devices() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// Device looks a device up by id
func (s *Store) Device(id string) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return models.Device{}, false
}

func (s *Store) SetDevices(devices []models.Device) {
	cp := make([]models.Device, len(devices))
	copy(cp, devices)
	s.mu.Lock()
	s.devices = cp
	s.mu.Unlock()
}

// AddDevice appends d. A device with the same id is replaced in place.
func (s *Store) AddDevice(d models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.devices {
		if s.devices[i].ID == d.ID {
			s.devices[i] = d
			return
		}
	}
	s.devices = append(s.devices, d)
}

// UpdateDevice merges the non-nil fields of patch into the device with the
// given id. It reports whether a device matched.
func (s *Store) UpdateDevice(id string, patch models.DevicePatch) (models.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.devices {
		if s.devices[i].ID != id {
			continue
		}
		applyPatch(&s.devices[i], patch)
		return s.devices[i], true
	}
	return models.Device{}, false
}

// RemoveDevice deletes the device with the given id
func (s *Store) RemoveDevice(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.devices {
		if s.devices[i].ID == id {
			s.devices = append(s.devices[:i:i], s.devices[i+1:]...)
			return true
		}
	}
	return false
}

func applyPatch(d *models.Device, p models.DevicePatch) {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.LatencyMs != nil {
		v := *p.LatencyMs
		d.LatencyMs = &v
	}
	if p.PacketLossPercent != nil {
		v := *p.PacketLossPercent
		d.PacketLossPercent = &v
	}
	if p.DeviceType != nil {
		d.DeviceType = *p.DeviceType
	}
	if p.MACAddress != nil {
		d.MACAddress = *p.MACAddress
	}
}
