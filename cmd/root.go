// Package cmd assembles the varta command tree.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/varta-systems/varta-go/cmd/collect"
	"github.com/varta-systems/varta-go/cmd/devices"
	exportcmd "github.com/varta-systems/varta-go/cmd/export"
	"github.com/varta-systems/varta-go/cmd/label"
	"github.com/varta-systems/varta-go/cmd/train"
	"github.com/varta-systems/varta-go/internal/conf"
	"github.com/varta-systems/varta-go/internal/logging"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "varta",
		Short: "VARTA acoustic drone detector pipeline",
		Long: "Collect labeled audio segments, train the drone/no-drone classifier " +
			"and export it as a quantized artifact for embedded deployment.",
	}

	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "enable debug logging")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(
		collect.Command(settings),
		label.Command(settings),
		train.Command(settings),
		exportcmd.Command(settings),
		devices.Command(),
	)

	// Logging is configured here rather than in main so the --debug flag has
	// already been parsed into the settings.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logPath := ""
		if settings.Main.Log.Enabled {
			logPath = settings.Main.Log.Path
		}
		logging.Init(settings.Debug, logPath)
		return nil
	}

	return rootCmd
}
