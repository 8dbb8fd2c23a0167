package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Giacomo117/AutoGuardian/api"
	"github.com/Giacomo117/AutoGuardian/bridge"
	"github.com/Giacomo117/AutoGuardian/mqtt"
	"github.com/Giacomo117/AutoGuardian/serial"
	"github.com/Giacomo117/AutoGuardian/server"
)

// Config is the root configuration tree, one section per component.
type Config struct {
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
	Serial serial.Config `mapstructure:"serial"`
	MQTT   mqtt.Config   `mapstructure:"mqtt"`
	API    api.Config    `mapstructure:"api"`
	Bridge bridge.Config `mapstructure:"bridge"`
	Store  server.Config `mapstructure:"store"`
}

var configPath string

// loadConfig reads config.yaml (or the --config override) over the
// per-component defaults.
func loadConfig() (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	cfg := &Config{
		Serial: serial.DefaultConfig(),
		MQTT:   mqtt.DefaultConfig(),
		API:    api.DefaultConfig(),
		Bridge: bridge.DefaultConfig(),
		Store:  server.DefaultConfig(),
	}
	cfg.Logging.Level = "info"

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	return cfg, nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(lvl)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "autoguardian",
		Short:        "Vehicle-mounted fire and smoke detection bridge",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	root.AddCommand(newBridgeCmd(), newServerCmd())
	return root
}

func newBridgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Run the vehicle bridge: serial telemetry in, corroborated alarm broadcasts out",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging.Level)
			return runBridge(cfg)
		},
	}
}

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the vehicle and alert store with the corroboration gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging.Level)
			return server.New(cfg.Store).ListenAndServe()
		},
	}
}

// runBridge wires the serial port, the store clients and the alarm channel
// into one bridge and drives its ingestion loop for the process lifetime.
func runBridge(cfg *Config) error {
	port, err := serial.Open(cfg.Serial)
	if err != nil {
		return fmt.Errorf("serial setup failed, check the configured device: %v", err)
	}
	defer port.Close()

	// The alarm handler and the bridge reference each other: the client
	// delivers broadcasts to the bridge, the bridge publishes through the
	// client. The subscription only becomes active in Start, after the
	// bridge is assigned.
	var b *bridge.Bridge
	client := mqtt.NewClient(cfg.MQTT, func(ids []int) {
		b.HandleAlarm(ids)
	})

	b = bridge.New(cfg.Bridge, port,
		api.NewVehicleClient(cfg.API),
		api.NewAlertClient(cfg.API),
		api.NewNeighborClient(cfg.API),
		client,
	)

	if err := client.Start(); err != nil {
		return err
	}
	defer client.Stop()

	return b.Run()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("autoguardian exited with error")
	}
}
