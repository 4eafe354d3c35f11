package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/gattd/internal/groutine"
	"github.com/srg/gattd/internal/peripheral"
	"github.com/srg/gattd/internal/peripheral/goble"
	"github.com/srg/gattd/internal/profile"
	"github.com/srg/gattd/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the peripheral described by a profile",
	Long: `Register the services of a profile with the local BLE adapter and advertise
them until interrupted or until the advertise timeout elapses.

Centrals may read, write and subscribe while the peripheral is running.
Remote writes that do not decode for the characteristic's type are rejected
and the previous value is kept.`,
	Example: `  gattd serve --profile profiles/battery.yaml
  gattd serve -c gattd.yaml --name sensor-1 --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveConfigPath string
	serveProfile    string
	serveDeviceID   int
	serveName       string
	serveTimeout    time.Duration
	serveQueueSize  uint32
)

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Config file (YAML)")
	serveCmd.Flags().StringVarP(&serveProfile, "profile", "p", "", "Profile file (YAML), overrides the config")
	serveCmd.Flags().IntVarP(&serveDeviceID, "device", "d", 0, "HCI device id (Linux)")
	serveCmd.Flags().StringVarP(&serveName, "name", "n", "", "Advertised local name")
	serveCmd.Flags().DurationVarP(&serveTimeout, "timeout", "t", 0, "Stop advertising after this duration (0 for indefinite)")
	serveCmd.Flags().Uint32Var(&serveQueueSize, "queue-size", goble.DefaultQueueSize, "Pending notifications kept per subscriber")
}

// serveConfig merges the config file with the flags that were set explicitly.
func serveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if serveConfigPath != "" {
		var err error
		if cfg, err = config.Load(serveConfigPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("profile") {
		cfg.ProfilePath = serveProfile
	}
	if flags.Changed("device") {
		cfg.DeviceID = serveDeviceID
	}
	if flags.Changed("name") {
		cfg.LocalName = serveName
	}
	if flags.Changed("timeout") {
		cfg.AdvertiseTimeout = serveTimeout
	}
	if flags.Changed("queue-size") {
		cfg.NotifyQueueSize = serveQueueSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ProfilePath == "" {
		return nil, ErrNoProfile
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := serveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cmd, cfg.LogLevel)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	p, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return err
	}
	services, err := p.Build()
	if err != nil {
		return fmt.Errorf("invalid profile %s: %w", cfg.ProfilePath, err)
	}
	beacon, err := p.BuildBeacon()
	if err != nil {
		return fmt.Errorf("invalid profile %s: %w", cfg.ProfilePath, err)
	}

	server, err := goble.Open(cfg.DeviceID, goble.WithLogger(logger), goble.WithQueueSize(cfg.NotifyQueueSize))
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			logger.WithError(err).Warn("Failed to stop BLE device")
		}
	}()

	binder := peripheral.New(server,
		peripheral.WithLogger(logger),
		peripheral.WithAdvertiseTimeout(cfg.AdvertiseTimeout),
	)
	defer binder.Close()

	for _, svc := range services {
		if err := binder.Add(svc); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if err := renderAttributes(out, bindingRows(binder.Table()), true); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"profile":  p.Name,
		"services": len(services),
	}).Debug("Peripheral ready")

	fmt.Fprintf(out, "\nAdvertising %q, press Ctrl+C to stop\n", cfg.LocalName)
	errc := groutine.Go(ctx, "advertise", func(ctx context.Context) error {
		return binder.Advertise(ctx, cfg.LocalName, services, beacon)
	})
	if err := <-errc; err != nil {
		return err
	}

	fmt.Fprintln(out, "Advertising stopped")
	return nil
}
