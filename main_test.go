package main

import (
	"os"
	"path/filepath"
	"testing"

	"TurbineMonitor/location"
	"TurbineMonitor/sim"

	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	args, err := parseArgs(nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", args.Host)
	require.Equal(t, uint16(27315), args.Port)
	require.Equal(t, uint16(2), args.Interval)
	require.Equal(t, "turbine_location.json", args.LocationFile)
	require.Equal(t, "info", args.LogLevel)
	require.Empty(t, args.MQTTBroker)
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"-H", "0.0.0.0", "-I", "5", "--mqtt-broker", "tcp://broker:1883", "-l", "debug"})
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", args.Host)
	require.Equal(t, uint16(5), args.Interval)
	require.Equal(t, "tcp://broker:1883", args.MQTTBroker)
	require.Equal(t, "debug", args.LogLevel)

	_, err = parseArgs([]string{"-l", "loud"})
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("warn")
	require.NoError(t, err)
	_, err = newLogger("chatty")
	require.Error(t, err)
}

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "turbine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadProfileDefault(t *testing.T) {
	profile, err := LoadProfile("")
	require.NoError(t, err)
	require.Equal(t, DefaultProfile(), profile)
	require.Equal(t, location.Default, profile.Fallback())
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
id: wt-07
name: North ridge
default_location: {lat: 12.5, lng: 79.25}
ranges:
  Voltage: {min: 225, max: 235}
`)
	profile, err := LoadProfile(path)
	require.NoError(t, err)
	require.Equal(t, "wt-07", profile.ID)
	require.Equal(t, "North ridge", profile.Name)
	require.Equal(t, location.Location{Lat: 12.5, Lng: 79.25}, profile.Fallback())
	require.Equal(t, sim.Range{Min: 225, Max: 235}, profile.Ranges[sim.LabelVoltage])
}

func TestLoadProfileKeepsDefaultsForMissingFields(t *testing.T) {
	profile, err := LoadProfile(writeProfile(t, "name: Only a name\n"))
	require.NoError(t, err)
	require.Equal(t, "turbine-1", profile.ID)
	require.Equal(t, location.Default, profile.Fallback())
}

func TestLoadProfileRejects(t *testing.T) {
	_, err := LoadProfile(writeProfile(t, "ranges:\n  Torque: {min: 0, max: 1}\n"))
	require.ErrorContains(t, err, "Torque")

	_, err = LoadProfile(writeProfile(t, "default_location: {lat: 120, lng: 0}\n"))
	require.Error(t, err)

	_, err = LoadProfile(writeProfile(t, "ranges: [1, 2\n"))
	require.Error(t, err)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
