// Command heifbox is a small CLI front end over the heif/writer packages:
// "read" inspects a HEIF/AVIF file's item graph, "write" packs a bare
// HEVC bitstream into a minimal single-image HEIF file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/heifbox/heifbox/internal/config"
	"github.com/heifbox/heifbox/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	log      *slog.Logger
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "heifbox",
	Short: "Inspect and build HEIF/AVIF files",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			s.LogLevel = logLevel
		}
		settings = s
		log = logging.New(os.Stderr, settings.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./heifbox.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
