package ec2

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostname(t *testing.T) {
	all := instance("i-1", types.InstanceStateNameRunning,
		withDNS("ec2.example.com"), withPublicIP("1.2.3.4"), withPrivateIP("10.0.0.1"))

	tests := []struct {
		name  string
		inst  types.Instance
		iface InterfaceType
		want  string
	}{
		{"dns-preferred", all, "", "ec2.example.com"},
		{"public-before-private", instance("i-1", "", withPublicIP("1.2.3.4"), withPrivateIP("10.0.0.1")), "", "1.2.3.4"},
		{"private-only", instance("i-1", "", withPrivateIP("10.0.0.1")), "", "10.0.0.1"},
		{"empty-dns-skipped", instance("i-1", "", withDNS(""), withPrivateIP("10.0.0.1")), "", "10.0.0.1"},
		{"none", instance("i-1", ""), "", ""},
		{"explicit-dns", all, InterfaceDNS, "ec2.example.com"},
		{"explicit-public", all, InterfacePublic, "1.2.3.4"},
		{"explicit-private", all, InterfacePrivate, "10.0.0.1"},
		{"explicit-missing", instance("i-1", "", withPrivateIP("10.0.0.1")), InterfacePublic, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hostname(&tt.inst, tt.iface)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostnameInvalidInterface(t *testing.T) {
	private := instance("i-1", "", withPrivateIP("10.0.0.1"))
	for _, inst := range []*types.Instance{nil, {}, &private} {
		_, err := Hostname(inst, "bogus")
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "interface", cerr.Key)
		assert.Contains(t, err.Error(), `"bogus"`)
	}
}
