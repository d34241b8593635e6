package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the tracker application configuration
type Config struct {
	// ModemPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	ModemPort string `yaml:"modem_port"`
	// ModemBaud is the baud rate for the modem serial link
	ModemBaud int `yaml:"modem_baud"`
	// GPSPort is the path to the GPS receiver's serial port
	GPSPort string `yaml:"gps_port"`
	// GPSBaud is the baud rate for the GPS serial link
	GPSBaud int `yaml:"gps_baud"`
	// APN, APNUser and APNPassword configure the GPRS bearer
	APN         string `yaml:"apn"`
	APNUser     string `yaml:"apn_user"`
	APNPassword string `yaml:"apn_password"`
	// ReportURL is the publish endpoint location reports are sent to
	ReportURL string `yaml:"report_url"`
	// ReportMethod is the HTTP method for reports ("POST" or "GET")
	ReportMethod string `yaml:"report_method"`
	// Channel is the publish channel name; defaults to "bus_" + DeviceID
	Channel string `yaml:"channel"`
	// DeviceID identifies this tracker in reports
	DeviceID string `yaml:"device_id"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if config.Channel == "" {
		config.Channel = "bus_" + config.DeviceID
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.ModemPort = "/dev/ttyUSB0"
		c.ModemBaud = 115200
		c.GPSPort = "/dev/ttyUSB1"
		c.GPSBaud = 9600
		c.ReportMethod = "POST"
		c.DeviceID = "bus-0"
		c.LogLevel = "info"
		return nil
	}
}

// WithFile loads configuration from a YAML file. An empty path is a
// no-op so the flag can stay optional.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if port := os.Getenv("MODEM_PORT"); port != "" {
			c.ModemPort = port
		}
		if baud := os.Getenv("MODEM_BAUD"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.ModemBaud = b
			}
		}
		if port := os.Getenv("GPS_PORT"); port != "" {
			c.GPSPort = port
		}
		if baud := os.Getenv("GPS_BAUD"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.GPSBaud = b
			}
		}
		if apn := os.Getenv("APN"); apn != "" {
			c.APN = apn
		}
		if user := os.Getenv("APN_USER"); user != "" {
			c.APNUser = user
		}
		if pass := os.Getenv("APN_PASSWORD"); pass != "" {
			c.APNPassword = pass
		}
		if url := os.Getenv("REPORT_URL"); url != "" {
			c.ReportURL = url
		}
		if id := os.Getenv("DEVICE_ID"); id != "" {
			c.DeviceID = id
		}
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}
		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "modem-port":
				c.ModemPort = f.Value.String()
			case "modem-baud":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.ModemBaud = b
				}
			case "gps-port":
				c.GPSPort = f.Value.String()
			case "gps-baud":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.GPSBaud = b
				}
			case "apn":
				c.APN = f.Value.String()
			case "report-url":
				c.ReportURL = f.Value.String()
			case "device-id":
				c.DeviceID = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			}
		})
		return nil
	}
}
