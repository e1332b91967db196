package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/huelink/internal/discovery"
	"github.com/dokzlo13/huelink/internal/hue"
	"github.com/dokzlo13/huelink/internal/pairing"
)

func newPairCmd(c *cli) *cobra.Command {
	var (
		bridgeAddr string
		bridgeID   string
		deviceName string
	)

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Register with a bridge after its link button is pressed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var bridge hue.Bridge
			if bridgeAddr != "" {
				b, err := parseBridgeAddress(bridgeAddr)
				if err != nil {
					return err
				}
				b.ID = hue.NormalizeID(bridgeID)
				bridge = b
			} else {
				result, err := c.app.Discover(ctx)
				if err != nil {
					return err
				}
				cand, err := selectCandidate(result, bridgeID)
				if err != nil {
					return err
				}
				bridge = cand.Bridge
			}

			sess, outcome, err := c.app.Pair(ctx, bridge, deviceName, func(pairing.Outcome) {
				fmt.Printf("Press the link button on bridge %s...\n", bridge.Address())
			})
			if err != nil {
				return err
			}

			switch outcome.Status {
			case pairing.StatusGranted:
				fmt.Printf("Paired with %s\n", sess.Bridge)
				fmt.Printf("HUE_BRIDGE=%s\n", sess.Bridge.Address())
				fmt.Printf("HUE_TOKEN=%s\n", sess.Token)
				if sess.ClientKey != "" {
					fmt.Printf("HUE_CLIENT_KEY=%s\n", sess.ClientKey)
				}
				return nil
			case pairing.StatusDenied:
				return fmt.Errorf("bridge refused pairing: %s (error %d)", outcome.Reason, int(outcome.Code))
			case pairing.StatusTimedOut:
				return errors.New("link button was not pressed in time")
			default:
				return fmt.Errorf("pairing ended in state %s", outcome.Status)
			}
		},
	}

	cmd.Flags().StringVar(&bridgeAddr, "bridge", "", "Bridge address (host or host:port); skips discovery")
	cmd.Flags().StringVar(&bridgeID, "id", "", "Bridge ID to pick when several are found")
	cmd.Flags().StringVar(&deviceName, "device-name", "", "Device name sent to the bridge (<app>#<device>)")
	return cmd
}

// selectCandidate picks the bridge to pair with: the one matching id, or the
// only one found.
func selectCandidate(result *discovery.Result, id string) (discovery.Candidate, error) {
	if id != "" {
		cand, ok := result.Get(id)
		if !ok {
			return discovery.Candidate{}, fmt.Errorf("bridge %s not found", id)
		}
		return cand, nil
	}

	candidates := result.Candidates()
	switch len(candidates) {
	case 0:
		return discovery.Candidate{}, errors.New("no bridge found")
	case 1:
		return candidates[0], nil
	default:
		ids := make([]string, 0, len(candidates))
		for _, cand := range candidates {
			ids = append(ids, cand.ID)
		}
		return discovery.Candidate{}, fmt.Errorf("found %d bridges (%s), choose one with --id", len(candidates), strings.Join(ids, ", "))
	}
}

// parseBridgeAddress accepts "host" or "host:port".
func parseBridgeAddress(addr string) (hue.Bridge, error) {
	addr = strings.TrimPrefix(strings.TrimPrefix(addr, "http://"), "https://")
	addr = strings.TrimSuffix(addr, "/")
	if addr == "" {
		return hue.Bridge{}, errors.New("bridge address is empty")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// No port given.
		return hue.Bridge{Host: addr, Port: hue.DefaultPort}, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return hue.Bridge{}, fmt.Errorf("invalid bridge port %q", portStr)
	}
	return hue.Bridge{Host: host, Port: port}, nil
}
