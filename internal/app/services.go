package app

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/db"
	"github.com/dokzlo13/huelink/internal/discovery"
	"github.com/dokzlo13/huelink/internal/ledger"
)

// Services is a container for the components a command needs.
// It manages initialization order and cleanup.
type Services struct {
	cfg *config.Config

	// Optional activity history, nil when disabled
	DB     *db.DB
	Ledger *ledger.Ledger

	Locator *discovery.Locator
}

// NewServices creates all services from configuration.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	if cfg.Database.IsEnabled() {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
	} else {
		log.Debug().Msg("Activity ledger disabled")
	}

	transports, opts := Transports(cfg)
	s.Locator = discovery.NewLocator(transports, cfg.Discovery.Timeout.Duration(), opts...)

	return s, nil
}

// Transports builds the enabled discovery transports with their timeouts.
func Transports(cfg *config.Config) ([]discovery.Transport, []discovery.LocatorOption) {
	var (
		transports []discovery.Transport
		opts       []discovery.LocatorOption
	)

	d := cfg.Discovery
	if d.Cloud.IsEnabled() {
		t := discovery.NewCloudTransport(d.Cloud.URL, &http.Client{})
		transports = append(transports, t)
		opts = append(opts, discovery.WithTransportTimeout(t.Name(), d.Cloud.Timeout.Duration()))
	}
	if d.SSDP.IsEnabled() {
		t := discovery.NewSSDPTransport(d.SSDP.Address)
		transports = append(transports, t)
		opts = append(opts, discovery.WithTransportTimeout(t.Name(), d.SSDP.Timeout.Duration()))
	}
	if d.MDNS.IsEnabled() {
		t := discovery.NewMDNSTransport(d.MDNS.Interface)
		transports = append(transports, t)
		opts = append(opts, discovery.WithTransportTimeout(t.Name(), d.MDNS.Timeout.Duration()))
	}

	return transports, opts
}

// Close releases all resources.
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
