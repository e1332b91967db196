package hue

import (
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the bridge's plain HTTP API port.
const DefaultPort = 80

// Bridge identifies a bridge on the network.
type Bridge struct {
	ID   string `json:"id"`
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
}

// NormalizeID folds the different spellings of a bridge ID (cloud lower case,
// SSDP upper case) into one form.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Address returns the host, with the port appended only when it is not 80.
// IPv6 hosts are always bracketed so the result can go straight into a URL.
func (b Bridge) Address() string {
	if b.Port == 0 || b.Port == DefaultPort {
		if strings.Contains(b.Host, ":") {
			return "[" + b.Host + "]"
		}
		return b.Host
	}
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

func (b Bridge) String() string {
	return b.ID + "@" + b.Address()
}

// Session is what a successful pairing hands to the caller: a bridge and the
// application key it issued. The library keeps no copy of it.
type Session struct {
	Bridge    Bridge `json:"bridge"`
	Token     string `json:"token"`
	ClientKey string `json:"clientkey,omitempty"`
}
