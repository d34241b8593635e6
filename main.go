package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/transitlab/bustrack/modem"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.String("modem-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("modem-baud", 115200, "Baud rate for the modem serial link")
	flag.String("gps-port", "/dev/ttyUSB1", "Serial port to connect to the GPS receiver")
	flag.Int("gps-baud", 9600, "Baud rate for the GPS serial link")
	flag.String("apn", "", "GPRS access point name")
	flag.String("report-url", "", "Publish endpoint for location reports")
	flag.String("device-id", "bus-0", "Tracker identity used in reports")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configPath), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: config.ModemPort,
			BaudRate: config.ModemBaud,
		}).
		WithLogger(logger.With("component", "modem")).
		WithVerboseErrors(true).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	session, err := modem.New(ctx, modemConfig)
	if err != nil {
		logger.Error("Failed to open modem", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	if err := session.Initialize(); err != nil {
		logger.Error("Failed to initialize modem", "error", err)
		os.Exit(1)
	}

	if battery, err := session.BatteryStatus(); err == nil {
		logger.Info("Battery", "state", battery.ChargeState, "level", battery.Level, "voltage", battery.Voltage)
	}

	if err := waitForRegistration(ctx, session, logger); err != nil {
		logger.Error("Network registration failed", "error", err)
		os.Exit(1)
	}

	ip, err := connectWithRetry(ctx, session, config, logger)
	if err != nil {
		logger.Error("Failed to connect bearer", "error", err)
		os.Exit(1)
	}
	if signalQ, err := session.SignalQuality(); err == nil {
		logger.Info("Connected", "ip", ip, "rssi_percent", signalQ.RSSIPercent, "ber", signalQ.BER)
	}

	if err := session.InitHTTPSession(); err != nil {
		logger.Error("Failed to open HTTP session", "error", err)
		os.Exit(1)
	}

	gpsPort, err := serial.Open(config.GPSPort, &serial.Mode{BaudRate: config.GPSBaud})
	if err != nil {
		logger.Error("Failed to open GPS port", "error", err)
		os.Exit(1)
	}
	defer gpsPort.Close()

	tracker := &Tracker{
		GPS:     gpsPort,
		Session: session,
		Logger:  logger.With("component", "tracker"),
		Method:  config.ReportMethod,
		Report: Report{
			BaseURL:  config.ReportURL,
			Channel:  config.Channel,
			DeviceID: config.DeviceID,
		},
	}

	logger.Info("Starting tracker", "device", config.DeviceID, "channel", config.Channel)
	if err := tracker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Tracker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutting down")
}

// waitForRegistration polls the registration status until the device
// is on a network or the context ends.
func waitForRegistration(ctx context.Context, session *modem.Modem, logger *slog.Logger) error {
	for {
		reg, err := session.NetworkRegistration()
		if err != nil {
			return err
		}
		if reg.Registered {
			logger.Info("Registered", "status", reg.StatusText)
			return nil
		}
		logger.Debug("Waiting for network registration", "status", reg.StatusText)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// connectWithRetry opens the bearer, retrying a bounded number of
// times: first attempts commonly fail right after power-up.
func connectWithRetry(ctx context.Context, session *modem.Modem, config *Config, logger *slog.Logger) (string, error) {
	const maxTries = 10
	for try := 1; ; try++ {
		ip, err := session.ConnectBearer(config.APN, config.APNUser, config.APNPassword)
		if err == nil {
			return ip, nil
		}
		if try >= maxTries {
			return "", err
		}
		logger.Warn("Bearer connect failed", "try", try, "max", maxTries, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
