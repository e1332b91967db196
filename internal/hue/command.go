package hue

// LightCommand is a partial light or group state. Only the fields that are set
// are sent, so a command that changes brightness leaves power untouched.
//
// Builders return a modified copy:
//
//	cmd := hue.LightCommand{}.TurnOn().WithBri(200).WithTransition(4)
type LightCommand struct {
	On             *bool       `json:"on,omitempty"`
	Bri            *uint8      `json:"bri,omitempty"`
	Hue            *uint16     `json:"hue,omitempty"`
	Sat            *uint8      `json:"sat,omitempty"`
	XY             *[2]float32 `json:"xy,omitempty"`
	CT             *uint16     `json:"ct,omitempty"`
	Alert          string      `json:"alert,omitempty"`
	Effect         string      `json:"effect,omitempty"`
	TransitionTime *uint16     `json:"transitiontime,omitempty"`
	BriInc         *int16      `json:"bri_inc,omitempty"`
	SatInc         *int16      `json:"sat_inc,omitempty"`
	HueInc         *int32      `json:"hue_inc,omitempty"`
	CTInc          *int16      `json:"ct_inc,omitempty"`
	Scene          string      `json:"scene,omitempty"`
}

func (c LightCommand) TurnOn() LightCommand {
	v := true
	c.On = &v
	return c
}

func (c LightCommand) TurnOff() LightCommand {
	v := false
	c.On = &v
	return c
}

// WithBri sets brightness, 1 (dimmest) to 254.
func (c LightCommand) WithBri(bri uint8) LightCommand {
	c.Bri = &bri
	return c
}

// WithHue sets the hue. 0 and 65535 are red, 25500 green, 46920 blue.
func (c LightCommand) WithHue(hue uint16) LightCommand {
	c.Hue = &hue
	return c
}

// WithSat sets saturation, 0 (white) to 254 (most saturated).
func (c LightCommand) WithSat(sat uint8) LightCommand {
	c.Sat = &sat
	return c
}

// WithXY sets the CIE xy color coordinates.
func (c LightCommand) WithXY(x, y float32) LightCommand {
	c.XY = &[2]float32{x, y}
	return c
}

// WithCT sets the color temperature in mired (153 is 6500K, 500 is 2000K).
func (c LightCommand) WithCT(ct uint16) LightCommand {
	c.CT = &ct
	return c
}

// WithKelvin converts a color temperature in kelvin to mired, clamped to the
// 153..500 range bulbs accept.
func (c LightCommand) WithKelvin(k uint32) LightCommand {
	if k == 0 {
		return c
	}
	mired := 1_000_000 / k
	mired = min(max(mired, 153), 500)
	return c.WithCT(uint16(mired))
}

func (c LightCommand) WithAlert(alert string) LightCommand {
	c.Alert = alert
	return c
}

// WithEffect sets "none" or "colorloop".
func (c LightCommand) WithEffect(effect string) LightCommand {
	c.Effect = effect
	return c
}

// WithTransition sets the transition time in multiples of 100ms.
func (c LightCommand) WithTransition(ds uint16) LightCommand {
	c.TransitionTime = &ds
	return c
}

func (c LightCommand) WithBriInc(inc int16) LightCommand {
	c.BriInc = &inc
	return c
}

func (c LightCommand) WithSatInc(inc int16) LightCommand {
	c.SatInc = &inc
	return c
}

func (c LightCommand) WithHueInc(inc int32) LightCommand {
	c.HueInc = &inc
	return c
}

func (c LightCommand) WithCTInc(inc int16) LightCommand {
	c.CTInc = &inc
	return c
}

// WithScene recalls a scene. Only meaningful for group actions.
func (c LightCommand) WithScene(scene string) LightCommand {
	c.Scene = scene
	return c
}

// Empty reports whether the command carries nothing to send.
func (c LightCommand) Empty() bool {
	return c == LightCommand{}
}

// GroupCommand holds the attributes used when creating a group.
type GroupCommand struct {
	Name   string   `json:"name"`
	Lights []string `json:"lights"`
	Type   string   `json:"type,omitempty"`
	Class  string   `json:"class,omitempty"`
}
