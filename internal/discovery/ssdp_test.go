package discovery

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hueSSDPResponse = "HTTP/1.1 200 OK\r\n" +
	"HOST: 239.255.255.250:1900\r\n" +
	"EXT:\r\n" +
	"CACHE-CONTROL: max-age=100\r\n" +
	"LOCATION: http://192.168.1.10:80/description.xml\r\n" +
	"SERVER: Hue/1.0 UPnP/1.0 IpBridge/1.16.0\r\n" +
	"hue-bridgeid: 001788FFFE23BFA7\r\n" +
	"ST: upnp:rootdevice\r\n" +
	"USN: uuid:2f402f80-da50-11e1-9b23-00178823bfa7::upnp:rootdevice\r\n\r\n"

func TestParseSSDPResponse(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantOK   bool
		wantID   string
		wantAddr string
	}{
		{
			name:     "bridge_with_id_header",
			data:     hueSSDPResponse,
			wantOK:   true,
			wantID:   "001788fffe23bfa7",
			wantAddr: "192.168.1.10",
		},
		{
			name: "older_bridge_id_from_usn",
			data: "HTTP/1.1 200 OK\r\n" +
				"LOCATION: http://192.168.1.11:8080/description.xml\r\n" +
				"SERVER: FreeRTOS/6.0.5, UPnP/1.0, IpBridge/0.1\r\n" +
				"USN: uuid:2f402f80-da50-11e1-9b23-001788102201::upnp:rootdevice\r\n\r\n",
			wantOK:   true,
			wantID:   "001788fffe102201",
			wantAddr: "192.168.1.11:8080",
		},
		{
			name: "other_device",
			data: "HTTP/1.1 200 OK\r\n" +
				"LOCATION: http://192.168.1.50:49152/desc.xml\r\n" +
				"SERVER: Linux/3.14 UPnP/1.0 Sonos/57.3\r\n" +
				"USN: uuid:RINCON_000E58A0B2C401400::upnp:rootdevice\r\n\r\n",
		},
		{
			name: "missing_location",
			data: "HTTP/1.1 200 OK\r\n" +
				"hue-bridgeid: 001788FFFE23BFA7\r\n\r\n",
		},
		{
			name: "garbage",
			data: "not an http response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := parseSSDPResponse([]byte(tt.data))
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantID, c.ID)
			assert.Equal(t, tt.wantAddr, c.Address())
			assert.Equal(t, "ssdp", c.Source)
		})
	}
}

func TestBridgeIDFromUSN(t *testing.T) {
	tests := []struct {
		usn  string
		want string
	}{
		{"uuid:2f402f80-da50-11e1-9b23-001788102201::upnp:rootdevice", "001788fffe102201"},
		{"uuid:2f402f80-da50-11e1-9b23-00178823BFA7", "001788fffe23bfa7"},
		{"uuid:2f402f80-da50-11e1-9b23-0017881022", ""},
		{"uuid:2f402f80-da50-11e1-9b23-00178810220z", ""},
		{"2f402f80-da50-11e1-9b23-001788102201", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bridgeIDFromUSN(tt.usn), tt.usn)
	}
}

// startResponder answers every M-SEARCH it receives with response.
func startResponder(t *testing.T, response string) string {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if !strings.HasPrefix(string(buf[:n]), "M-SEARCH") {
				continue
			}
			_, _ = conn.WriteTo([]byte(response), addr)
		}
	}()

	return conn.LocalAddr().String()
}

func TestSSDPTransportDiscover(t *testing.T) {
	addr := startResponder(t, hueSSDPResponse)

	var got []Candidate
	start := time.Now()
	err := NewSSDPTransport(addr).Discover(context.Background(), 300*time.Millisecond, func(c Candidate) {
		got = append(got, c)
	})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	// The search is sent twice; duplicate answers are folded.
	require.Len(t, got, 1)
	assert.Equal(t, "001788fffe23bfa7", got[0].ID)
	assert.Equal(t, "192.168.1.10", got[0].Host)
}

func TestSSDPTransportCancel(t *testing.T) {
	addr := startResponder(t, hueSSDPResponse)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	err := NewSSDPTransport(addr).Discover(ctx, time.Hour, func(Candidate) {})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSSDPSearchRequest(t *testing.T) {
	req := string(NewSSDPTransport("").searchRequest())
	assert.True(t, strings.HasPrefix(req, "M-SEARCH * HTTP/1.1\r\n"))
	assert.Contains(t, req, "HOST: 239.255.255.250:1900\r\n")
	assert.Contains(t, req, "MAN: \"ssdp:discover\"\r\n")
	assert.True(t, strings.HasSuffix(req, "\r\n\r\n"))
}
