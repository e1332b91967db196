package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dokzlo13/huelink/internal/hue"
)

// DefaultCloudURL is the Philips discovery registry.
const DefaultCloudURL = "https://discovery.meethue.com/"

// CloudTransport asks the Philips registry which bridges share the caller's
// public IP.
type CloudTransport struct {
	url        string
	httpClient *http.Client
}

// NewCloudTransport creates a cloud transport. An empty url selects the
// default registry and a nil client a fresh one.
func NewCloudTransport(url string, httpClient *http.Client) *CloudTransport {
	if url == "" {
		url = DefaultCloudURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &CloudTransport{
		url:        url,
		httpClient: httpClient,
	}
}

// cloudEntry is one element of the registry's response. Port is only present
// in newer registry versions and refers to the HTTPS endpoint.
type cloudEntry struct {
	ID                string `json:"id"`
	InternalIPAddress string `json:"internalipaddress"`
	Port              int    `json:"port,omitempty"`
}

func (t *CloudTransport) Name() string {
	return "cloud"
}

func (t *CloudTransport) Discover(ctx context.Context, timeout time.Duration, found func(Candidate)) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return &hue.NetworkError{Op: "cloud discovery", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &hue.NetworkError{Op: "cloud discovery", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &hue.NetworkError{
			Op:  "cloud discovery",
			Err: fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &hue.NetworkError{Op: "cloud discovery", Err: err}
	}

	entries, err := parseCloudResponse(body)
	if err != nil {
		return &hue.ParseError{Op: "cloud discovery", Err: err}
	}

	for _, e := range entries {
		// The registry's port is the HTTPS one; the v1 API lives on 80.
		found(NewCandidate(e.ID, e.InternalIPAddress, hue.DefaultPort, t.Name()))
	}
	return nil
}

func parseCloudResponse(body []byte) ([]cloudEntry, error) {
	var entries []cloudEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d: missing id", i)
		}
		if e.InternalIPAddress == "" {
			return nil, fmt.Errorf("entry %d: missing internalipaddress", i)
		}
	}
	if entries == nil {
		return nil, errors.New("expected a JSON array")
	}
	return entries, nil
}
