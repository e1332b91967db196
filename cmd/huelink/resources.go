package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/huelink/internal/hue"
)

// bridgeFlags selects the paired bridge for resource commands. Unset flags
// fall back to the bridge section of the config.
type bridgeFlags struct {
	address string
	token   string
}

func (f *bridgeFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.address, "bridge", "", "Bridge address (default: bridge.address from config)")
	cmd.PersistentFlags().StringVar(&f.token, "token", "", "Application key (default: bridge.token from config)")
}

func (f *bridgeFlags) client(c *cli) (*hue.Client, error) {
	address, token := f.address, f.token
	if address == "" {
		address = c.cfg.Bridge.Address
	}
	if token == "" {
		token = c.cfg.Bridge.Token
	}
	if address == "" || token == "" {
		return nil, errors.New("no paired bridge: set --bridge and --token or the bridge section of the config")
	}

	bridge, err := parseBridgeAddress(address)
	if err != nil {
		return nil, err
	}
	return c.app.Client(hue.Session{Bridge: bridge, Token: token}), nil
}

func newLightsCmd(c *cli) *cobra.Command {
	var bf bridgeFlags

	cmd := &cobra.Command{
		Use:   "lights",
		Short: "List lights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bf.client(c)
			if err != nil {
				return err
			}
			defer client.Close()

			lights, err := client.Lights(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tON\tBRI\tREACHABLE\tTYPE")
			for _, l := range lights {
				var on bool
				var bri uint8
				var reachable bool
				if l.State != nil {
					on, bri, reachable = l.State.On, l.State.Bri, l.State.Reachable
				}
				fmt.Fprintf(w, "%d\t%s\t%t\t%d\t%t\t%s\n", l.ID, l.Name, on, bri, reachable, l.Type)
			}
			return w.Flush()
		},
	}
	bf.register(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <state>...",
		Short: "Change a light's state, e.g. on bri=200 kelvin=2700",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseResourceID(args[0])
			if err != nil {
				return err
			}
			lc, err := parseCommand(args[1:])
			if err != nil {
				return err
			}
			client, err := bf.client(c)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.SetLightState(cmd.Context(), id, lc)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a light",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseResourceID(args[0])
			if err != nil {
				return err
			}
			client, err := bf.client(c)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.RenameLight(cmd.Context(), id, args[1])
		},
	})

	return cmd
}

func newGroupsCmd(c *cli) *cobra.Command {
	var bf bridgeFlags

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List groups and rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bf.client(c)
			if err != nil {
				return err
			}
			defer client.Close()

			groups, err := client.Groups(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tCLASS\tLIGHTS\tANY_ON")
			for _, g := range groups {
				var anyOn bool
				if g.GroupState != nil {
					anyOn = g.GroupState.AnyOn
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n", g.ID, g.Name, g.Type, g.Class, strings.Join(g.Lights, ","), anyOn)
			}
			return w.Flush()
		},
	}
	bf.register(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "set <id> <state>...",
		Short: "Change every light in a group, e.g. off or scene=<id>",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseResourceID(args[0])
			if err != nil {
				return err
			}
			lc, err := parseCommand(args[1:])
			if err != nil {
				return err
			}
			client, err := bf.client(c)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.SetGroupState(cmd.Context(), id, lc)
		},
	})

	var (
		groupType  string
		groupClass string
	)
	create := &cobra.Command{
		Use:   "create <name> <light-id>...",
		Short: "Create a group from lights",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args[1:] {
				if _, err := parseResourceID(id); err != nil {
					return err
				}
			}
			client, err := bf.client(c)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := client.CreateGroup(cmd.Context(), hue.GroupCommand{
				Name:   args[0],
				Lights: args[1:],
				Type:   groupType,
				Class:  groupClass,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created group %s\n", id)
			return nil
		},
	}
	create.Flags().StringVar(&groupType, "type", "LightGroup", "Group type (LightGroup, Room, Zone, Entertainment)")
	create.Flags().StringVar(&groupClass, "class", "", "Room class, required for rooms (e.g. \"Living room\")")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseResourceID(args[0])
			if err != nil {
				return err
			}
			client, err := bf.client(c)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.DeleteGroup(cmd.Context(), id)
		},
	})

	return cmd
}

func parseResourceID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid resource id %q", s)
	}
	return id, nil
}

// parseCommand turns words like "on", "bri=200" or "kelvin=2700" into a
// LightCommand.
func parseCommand(args []string) (hue.LightCommand, error) {
	var cmd hue.LightCommand
	for _, arg := range args {
		key, value, hasValue := strings.Cut(strings.ToLower(arg), "=")
		if !hasValue {
			switch key {
			case "on":
				cmd = cmd.TurnOn()
			case "off":
				cmd = cmd.TurnOff()
			default:
				return cmd, fmt.Errorf("unknown state %q", arg)
			}
			continue
		}

		switch key {
		case "bri":
			n, err := parseUint(key, value, 254)
			if err != nil {
				return cmd, err
			}
			cmd = cmd.WithBri(uint8(n))
		case "sat":
			n, err := parseUint(key, value, 254)
			if err != nil {
				return cmd, err
			}
			cmd = cmd.WithSat(uint8(n))
		case "hue":
			n, err := parseUint(key, value, 65535)
			if err != nil {
				return cmd, err
			}
			cmd = cmd.WithHue(uint16(n))
		case "ct":
			n, err := parseUint(key, value, 500)
			if err != nil {
				return cmd, err
			}
			cmd = cmd.WithCT(uint16(n))
		case "kelvin":
			n, err := parseUint(key, value, 10000)
			if err != nil {
				return cmd, err
			}
			cmd = cmd.WithKelvin(uint32(n))
		case "transition":
			n, err := parseUint(key, value, 65535)
			if err != nil {
				return cmd, err
			}
			cmd = cmd.WithTransition(uint16(n))
		case "xy":
			x, y, ok := strings.Cut(value, ",")
			if !ok {
				return cmd, fmt.Errorf("xy wants x,y, got %q", value)
			}
			fx, errX := strconv.ParseFloat(x, 32)
			fy, errY := strconv.ParseFloat(y, 32)
			if errX != nil || errY != nil || fx < 0 || fx > 1 || fy < 0 || fy > 1 {
				return cmd, fmt.Errorf("invalid xy %q", value)
			}
			cmd = cmd.WithXY(float32(fx), float32(fy))
		case "alert":
			cmd = cmd.WithAlert(value)
		case "effect":
			cmd = cmd.WithEffect(value)
		case "scene":
			// Scene IDs are case sensitive.
			_, raw, _ := strings.Cut(arg, "=")
			cmd = cmd.WithScene(raw)
		default:
			return cmd, fmt.Errorf("unknown state %q", arg)
		}
	}
	if cmd.Empty() {
		return cmd, errors.New("no state given")
	}
	return cmd, nil
}

func parseUint(key, value string, max uint64) (uint64, error) {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil || n > max {
		return 0, fmt.Errorf("%s must be a number between 0 and %d, got %q", key, max, value)
	}
	return n, nil
}
