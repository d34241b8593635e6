package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(WithDefaults())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.ModemPort != "/dev/ttyUSB0" {
		t.Errorf("ModemPort = %q", config.ModemPort)
	}
	if config.GPSBaud != 9600 {
		t.Errorf("GPSBaud = %d", config.GPSBaud)
	}
	if config.ReportMethod != "POST" {
		t.Errorf("ReportMethod = %q", config.ReportMethod)
	}
	if config.Channel != "bus_bus-0" {
		t.Errorf("Channel = %q, want derived from device id", config.Channel)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := []byte("modem_port: /dev/ttyS2\napn: internet.example\ndevice_id: bus-17\nchannel: fleet\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(WithDefaults(), WithFile(path))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.ModemPort != "/dev/ttyS2" {
		t.Errorf("ModemPort = %q", config.ModemPort)
	}
	if config.APN != "internet.example" {
		t.Errorf("APN = %q", config.APN)
	}
	// An explicit channel wins over the derived one.
	if config.Channel != "fleet" {
		t.Errorf("Channel = %q, want fleet", config.Channel)
	}
	// Values the file doesn't mention keep their defaults.
	if config.ModemBaud != 115200 {
		t.Errorf("ModemBaud = %d", config.ModemBaud)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := LoadConfig(WithFile("/nonexistent/tracker.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
	// An empty path means no file was requested.
	if _, err := LoadConfig(WithFile("")); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("APN", "env.example")
	t.Setenv("DEVICE_ID", "bus-42")
	t.Setenv("MODEM_BAUD", "57600")

	config, err := LoadConfig(WithDefaults(), WithEnv())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.APN != "env.example" {
		t.Errorf("APN = %q", config.APN)
	}
	if config.DeviceID != "bus-42" {
		t.Errorf("DeviceID = %q", config.DeviceID)
	}
	if config.ModemBaud != 57600 {
		t.Errorf("ModemBaud = %d", config.ModemBaud)
	}
	if config.Channel != "bus_bus-42" {
		t.Errorf("Channel = %q", config.Channel)
	}
}

func TestLoadConfigFlags(t *testing.T) {
	fSet := flag.NewFlagSet("test", flag.ContinueOnError)
	fSet.String("apn", "", "")
	fSet.String("device-id", "", "")
	fSet.String("report-url", "", "")
	if err := fSet.Parse([]string{"-apn", "flag.example", "-device-id", "bus-9"}); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(WithDefaults(), WithFlags(fSet))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.APN != "flag.example" {
		t.Errorf("APN = %q", config.APN)
	}
	if config.DeviceID != "bus-9" {
		t.Errorf("DeviceID = %q", config.DeviceID)
	}
	// Unset flags must not clobber earlier sources.
	if config.ReportURL != "" {
		t.Errorf("ReportURL = %q, want empty", config.ReportURL)
	}
	if config.ModemPort != "/dev/ttyUSB0" {
		t.Errorf("ModemPort = %q", config.ModemPort)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	if err := os.WriteFile(path, []byte("apn: file.example\ndevice_id: bus-1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APN", "env.example")

	config, err := LoadConfig(WithDefaults(), WithFile(path), WithEnv())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	// Later sources win.
	if config.APN != "env.example" {
		t.Errorf("APN = %q, want env.example", config.APN)
	}
	if config.DeviceID != "bus-1" {
		t.Errorf("DeviceID = %q, want bus-1", config.DeviceID)
	}
}
