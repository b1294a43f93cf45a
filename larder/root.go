package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configFlag  string
	verboseFlag bool
	noColorFlag bool
	mockFlag    bool
	portFlag    string

	cfg    *config.Config
	logger *logging.StdLogger
)

var rootCmd = &cobra.Command{
	Use:   "larder",
	Short: "Load cell sample-and-upload station",
	Long: `larder reads a load cell, and when the button is pressed appends the weight
with a timestamp and food details as a new row of a Google spreadsheet.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColorFlag {
			color.NoColor = true
		}
		if configFlag == "" {
			configFlag = config.GetConfigPath()
		}

		var err error
		cfg, err = config.Load(configFlag)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		applyFlags(cfg)

		logger = logging.New(os.Stderr, verboseFlag)
		logger.Debug("configuration loaded from %s", configFlag)
		return nil
	},
}

// applyFlags overrides configuration with command line flags.
func applyFlags(cfg *config.Config) {
	if mockFlag {
		cfg.Device.Type = config.DeviceMock
	}
	if portFlag != "" {
		cfg.Serial.Port = portFlag
	}
}

func execute() error {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgHiRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "configuration file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "use a simulated scale instead of hardware")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "serial port override (e.g. COM3 or /dev/ttyACM0)")

	rootCmd.AddCommand(
		newRunCmd(),
		newCalibrateCmd(),
		newPortsCmd(),
	)
}
