package ec2

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// InterfaceType selects which instance address is treated as its hostname.
type InterfaceType string

const (
	InterfaceDNS     InterfaceType = "dns"
	InterfacePublic  InterfaceType = "public"
	InterfacePrivate InterfaceType = "private"
)

// interfaceTypes is also the fallback order used when no interface type is
// configured.
var interfaceTypes = []InterfaceType{InterfaceDNS, InterfacePublic, InterfacePrivate}

// nullAddress is reported by EC2 for instances that are running but have not
// been assigned a usable address yet.
const nullAddress = "0.0.0.0"

func (t InterfaceType) Valid() bool {
	for _, known := range interfaceTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t InterfaceType) address(inst *types.Instance) string {
	switch t {
	case InterfaceDNS:
		return aws.ToString(inst.PublicDnsName)
	case InterfacePublic:
		return aws.ToString(inst.PublicIpAddress)
	case InterfacePrivate:
		return aws.ToString(inst.PrivateIpAddress)
	}
	return ""
}

func invalidInterface(t InterfaceType) *ConfigError {
	names := make([]string, len(interfaceTypes))
	for i, it := range interfaceTypes {
		names[i] = string(it)
	}
	return configErrorf("interface", "%q is not one of %s", string(t), strings.Join(names, ", "))
}

// Hostname returns the address of 'inst' to connect to.
//
// With an explicit 'iface' only that address is considered. Otherwise the
// DNS name, public IP and private IP are tried in that order and the first
// one set wins. An empty string means the instance has no address yet.
func Hostname(inst *types.Instance, iface InterfaceType) (string, error) {
	if iface != "" {
		if !iface.Valid() {
			return "", invalidInterface(iface)
		}
		if inst == nil {
			return "", nil
		}
		return iface.address(inst), nil
	}
	if inst == nil {
		return "", nil
	}
	for _, it := range interfaceTypes {
		if addr := it.address(inst); addr != "" {
			return addr, nil
		}
	}
	return "", nil
}
