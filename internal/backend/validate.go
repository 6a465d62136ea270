package backend

import (
	"fmt"
	"net/netip"
	"strings"

	"netmon-dashboard/pkg/models"
)

// MaxScanHosts bounds the size of an on-demand subnet scan
const MaxScanHosts = 1024

// ParseSubnet validates an IPv4 CIDR and returns the masked prefix and its
// usable host count. Host bits set in the input are ignored, so
// "192.168.1.7/24" is 192.168.1.0/24.
func ParseSubnet(subnet string) (netip.Prefix, int, error) {
	subnet = strings.TrimSpace(subnet)
	if subnet == "" {
		return netip.Prefix{}, 0, &ValidationError{Field: "subnet", Message: "is required"}
	}
	p, err := netip.ParsePrefix(subnet)
	if err != nil || !p.Addr().Is4() {
		return netip.Prefix{}, 0, &ValidationError{Field: "subnet", Message: "invalid subnet format, e.g. 192.168.1.0/24"}
	}
	p = p.Masked()
	hosts := HostCount(p)
	if hosts > MaxScanHosts {
		return netip.Prefix{}, 0, &ValidationError{
			Field:   "subnet",
			Message: fmt.Sprintf("range has %d hosts, narrow it to at most %d (e.g. a /24)", hosts, MaxScanHosts),
		}
	}
	return p, hosts, nil
}

// HostCount is the number of assignable hosts of an IPv4 prefix. /31 and
// /32 have no network or broadcast address to exclude.
func HostCount(p netip.Prefix) int {
	bits := 32 - p.Bits()
	total := 1 << bits
	if bits >= 2 {
		return total - 2
	}
	return total
}

// ValidateNewDevice checks a manual add before it is sent
func ValidateNewDevice(d models.NewDevice) error {
	if err := required("name", strings.TrimSpace(d.Name)); err != nil {
		return err
	}
	if err := required("ip_address", strings.TrimSpace(d.IP)); err != nil {
		return err
	}
	if _, err := netip.ParseAddr(strings.TrimSpace(d.IP)); err != nil {
		return &ValidationError{Field: "ip_address", Message: "is not a valid IP address"}
	}
	return nil
}

// ScannedToNewDevice turns a scan hit into the payload saved by the scanner
// page: it is named after the last octet and typed "other".
func ScannedToNewDevice(ip string) (models.NewDevice, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is4() {
		return models.NewDevice{}, &ValidationError{Field: "ip_address", Message: "is not a valid IPv4 address"}
	}
	octets := addr.As4()
	return models.NewDevice{
		Name:       fmt.Sprintf("Device-%d", octets[3]),
		IP:         addr.String(),
		DeviceType: models.TypeOther,
	}, nil
}
