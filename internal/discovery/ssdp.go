package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dokzlo13/huelink/internal/hue"
)

// DefaultSSDPAddress is the SSDP multicast group.
const DefaultSSDPAddress = "239.255.255.250:1900"

// SSDPTransport sends an M-SEARCH to the SSDP multicast group and collects
// answers from bridges.
type SSDPTransport struct {
	address string
	mx      int
	repeats int
}

// NewSSDPTransport creates an SSDP transport. An empty address selects the
// standard multicast group.
func NewSSDPTransport(address string) *SSDPTransport {
	if address == "" {
		address = DefaultSSDPAddress
	}
	return &SSDPTransport{
		address: address,
		mx:      2,
		repeats: 2,
	}
}

func (t *SSDPTransport) Name() string {
	return "ssdp"
}

func (t *SSDPTransport) searchRequest() []byte {
	return []byte("M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + t.address + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: " + strconv.Itoa(t.mx) + "\r\n" +
		"ST: ssdp:all\r\n\r\n")
}

func (t *SSDPTransport) Discover(ctx context.Context, timeout time.Duration, found func(Candidate)) error {
	dst, err := net.ResolveUDPAddr("udp4", t.address)
	if err != nil {
		return &hue.NetworkError{Op: "ssdp resolve", Err: err}
	}

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return &hue.NetworkError{Op: "ssdp bind", Err: err}
	}
	defer conn.Close()

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return &hue.NetworkError{Op: "ssdp deadline", Err: err}
	}

	// Unblock ReadFrom when the caller gives up early.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	req := t.searchRequest()
	for i := 0; i < t.repeats; i++ {
		if _, err := conn.WriteTo(req, dst); err != nil {
			return &hue.NetworkError{Op: "ssdp send", Err: err}
		}
	}

	seen := make(map[string]bool)
	buf := make([]byte, 2048)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return &hue.NetworkError{Op: "ssdp receive", Err: err}
		}

		c, ok := parseSSDPResponse(buf[:n])
		if !ok {
			continue
		}
		key := c.ID + "|" + c.Address()
		if seen[key] {
			continue
		}
		seen[key] = true
		c.Source = t.Name()
		found(c)
	}
}

// parseSSDPResponse extracts a bridge from an SSDP answer. Answers from
// anything that is not a Hue bridge are rejected.
func parseSSDPResponse(data []byte) (Candidate, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), nil)
	if err != nil {
		return Candidate{}, false
	}
	resp.Body.Close()

	id := resp.Header.Get("hue-bridgeid")
	if id == "" {
		if !strings.Contains(resp.Header.Get("Server"), "IpBridge") {
			return Candidate{}, false
		}
		id = bridgeIDFromUSN(resp.Header.Get("USN"))
		if id == "" {
			return Candidate{}, false
		}
	}

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || loc.Hostname() == "" {
		return Candidate{}, false
	}
	port := hue.DefaultPort
	if p := loc.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Candidate{}, false
		}
	}

	return NewCandidate(id, loc.Hostname(), port, "ssdp"), true
}

// bridgeIDFromUSN derives the bridge ID from the MAC address embedded at the
// end of the UPnP uuid: 001788102201 becomes 001788fffe102201.
func bridgeIDFromUSN(usn string) string {
	rest, ok := strings.CutPrefix(usn, "uuid:")
	if !ok {
		return ""
	}
	uuid, _, _ := strings.Cut(rest, "::")
	i := strings.LastIndex(uuid, "-")
	if i < 0 {
		return ""
	}
	mac := strings.ToLower(uuid[i+1:])
	if len(mac) != 12 {
		return ""
	}
	if _, err := strconv.ParseUint(mac, 16, 64); err != nil {
		return ""
	}
	return fmt.Sprintf("%sfffe%s", mac[:6], mac[6:])
}
