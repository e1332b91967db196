package discovery

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/hue"
)

const (
	// MDNSService is the service type Hue bridges advertise.
	MDNSService = "_hue._tcp"
	// MDNSDomain is the mDNS browse domain.
	MDNSDomain = "local."
)

type browseFunc func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

func zeroconfBrowse(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
	return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
}

// MDNSTransport browses for bridges advertising _hue._tcp.
type MDNSTransport struct {
	iface  string
	browse browseFunc
}

// NewMDNSTransport creates an mDNS transport. An empty interface name browses
// on all multicast-capable interfaces.
func NewMDNSTransport(iface string) *MDNSTransport {
	return &MDNSTransport{iface: iface, browse: zeroconfBrowse}
}

func (t *MDNSTransport) Name() string {
	return "mdns"
}

func (t *MDNSTransport) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if t.iface != "" {
		iface, err := net.InterfaceByName(t.iface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		} else {
			log.Warn().Err(err).Str("interface", t.iface).Msg("mDNS interface not found, browsing on all interfaces")
		}
	}
	return opts
}

func (t *MDNSTransport) Discover(ctx context.Context, timeout time.Duration, found func(Candidate)) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	browseErr := make(chan error, 1)

	go func() {
		browseErr <- t.browse(ctx, MDNSService, MDNSDomain, entries, removed, t.browserOptions()...)
	}()

	// Browse may be blocked sending to us when the window closes. Keep
	// reading until it returns so its sockets get closed.
	browsing := true
	defer func() {
		for browsing {
			select {
			case _, ok := <-entries:
				if !ok {
					entries = nil
				}
			case _, ok := <-removed:
				if !ok {
					removed = nil
				}
			case <-browseErr:
				browsing = false
			}
		}
	}()

	seen := make(map[string]bool)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			c, ok := entryToCandidate(entry)
			if !ok {
				continue
			}
			key := c.ID + "|" + c.Address()
			if seen[key] {
				continue
			}
			seen[key] = true
			found(c)

		case _, ok := <-removed:
			// Departures within a single window are not interesting.
			if !ok {
				removed = nil
			}

		case err := <-browseErr:
			browsing = false
			if err != nil && ctx.Err() == nil {
				return &hue.NetworkError{Op: "mdns browse", Err: err}
			}
			if ctx.Err() != nil {
				return nil
			}
			// Browse returned early without error; wait out the window.
			browseErr = nil

		case <-ctx.Done():
			return nil
		}
	}
}

// entryToCandidate reads the bridge ID from the bridgeid TXT record and uses
// the first IPv4 address, falling back to a routable IPv6 one. Link-local IPv6
// is skipped: the entry carries no zone, so it could not be dialed.
func entryToCandidate(entry *zeroconf.ServiceEntry) (Candidate, bool) {
	if entry == nil {
		return Candidate{}, false
	}

	var id string
	for _, txt := range entry.Text {
		key, value, ok := strings.Cut(txt, "=")
		if ok && strings.EqualFold(key, "bridgeid") {
			id = value
			break
		}
	}
	if id == "" {
		return Candidate{}, false
	}

	var host string
	if len(entry.AddrIPv4) > 0 {
		host = entry.AddrIPv4[0].String()
	} else {
		for _, ip := range entry.AddrIPv6 {
			if !ip.IsLinkLocalUnicast() {
				host = ip.String()
				break
			}
		}
	}
	if host == "" {
		return Candidate{}, false
	}

	// Bridges advertise their HTTPS port; the v1 API is served on 80.
	port := entry.Port
	if port == 443 || port == 0 {
		port = hue.DefaultPort
	}

	return NewCandidate(id, host, port, "mdns"), true
}
