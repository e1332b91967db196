package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huelink/internal/discovery"
	"github.com/dokzlo13/huelink/internal/hue"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    hue.LightCommand
		wantErr bool
	}{
		{name: "on", args: []string{"on"}, want: hue.LightCommand{}.TurnOn()},
		{name: "off_case_insensitive", args: []string{"OFF"}, want: hue.LightCommand{}.TurnOff()},
		{
			name: "on_bri_kelvin",
			args: []string{"on", "bri=200", "kelvin=2700"},
			want: hue.LightCommand{}.TurnOn().WithBri(200).WithCT(370),
		},
		{
			name: "color",
			args: []string{"hue=10000", "sat=254", "transition=4"},
			want: hue.LightCommand{}.WithHue(10000).WithSat(254).WithTransition(4),
		},
		{name: "xy", args: []string{"xy=0.3,0.4"}, want: hue.LightCommand{}.WithXY(0.3, 0.4)},
		{name: "alert_effect", args: []string{"alert=select", "effect=colorloop"}, want: hue.LightCommand{}.WithAlert("select").WithEffect("colorloop")},
		{name: "scene_keeps_case", args: []string{"scene=AbC123"}, want: hue.LightCommand{}.WithScene("AbC123")},
		{name: "bri_out_of_range", args: []string{"bri=300"}, wantErr: true},
		{name: "ct_not_a_number", args: []string{"ct=warm"}, wantErr: true},
		{name: "xy_missing_y", args: []string{"xy=0.3"}, wantErr: true},
		{name: "xy_out_of_range", args: []string{"xy=1.5,0.2"}, wantErr: true},
		{name: "unknown_word", args: []string{"dim"}, wantErr: true},
		{name: "unknown_key", args: []string{"speed=3"}, wantErr: true},
		{name: "nothing", args: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBridgeAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    hue.Bridge
		wantErr bool
	}{
		{in: "192.168.1.10", want: hue.Bridge{Host: "192.168.1.10", Port: 80}},
		{in: "192.168.1.10:8080", want: hue.Bridge{Host: "192.168.1.10", Port: 8080}},
		{in: "http://192.168.1.10/", want: hue.Bridge{Host: "192.168.1.10", Port: 80}},
		{in: "[fe80::1]:80", want: hue.Bridge{Host: "fe80::1", Port: 80}},
		{in: "192.168.1.10:http", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseBridgeAddress(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSelectCandidate(t *testing.T) {
	empty := discovery.NewResult()
	_, err := selectCandidate(empty, "")
	assert.Error(t, err)

	one := discovery.NewResult()
	one.Add(discovery.NewCandidate("001788fffe23bfa7", "192.168.1.10", 80, "cloud"))
	c, err := selectCandidate(one, "")
	require.NoError(t, err)
	assert.Equal(t, "001788fffe23bfa7", c.ID)

	two := discovery.NewResult()
	two.Add(discovery.NewCandidate("001788fffe23bfa7", "192.168.1.10", 80, "cloud"))
	two.Add(discovery.NewCandidate("001788fffe4a21c0", "192.168.1.20", 80, "ssdp"))
	_, err = selectCandidate(two, "")
	assert.Error(t, err)

	c, err = selectCandidate(two, "001788FFFE4A21C0")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", c.Host)

	_, err = selectCandidate(two, "0000000000000000")
	assert.Error(t, err)
}
