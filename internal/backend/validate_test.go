package backend

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon-dashboard/pkg/models"
)

func TestParseSubnet(t *testing.T) {
	p, hosts, err := ParseSubnet("192.168.1.77/24")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.0/24", p.String())
	assert.Equal(t, 254, hosts)

	_, hosts, err = ParseSubnet("10.0.0.0/22")
	require.NoError(t, err)
	assert.Equal(t, 1022, hosts)

	for _, bad := range []string{"", "10.0.0.0/21", "nonsense", "fe80::/64", "10.0.0.1"} {
		_, _, err := ParseSubnet(bad)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, bad)
	}
}

func TestHostCount(t *testing.T) {
	assert.Equal(t, 1, HostCount(netip.MustParsePrefix("10.0.0.1/32")))
	assert.Equal(t, 2, HostCount(netip.MustParsePrefix("10.0.0.0/31")))
	assert.Equal(t, 2, HostCount(netip.MustParsePrefix("10.0.0.0/30")))
}

func TestScannedToNewDevice(t *testing.T) {
	d, err := ScannedToNewDevice("192.168.1.20")
	require.NoError(t, err)
	assert.Equal(t, "Device-20", d.Name)
	assert.Equal(t, models.TypeOther, d.DeviceType)

	_, err = ScannedToNewDevice("host")
	assert.Error(t, err)
}
