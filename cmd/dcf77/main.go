package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dcf77/internal/app"
)

func main() {
	var config app.Config

	rootCmd := &cobra.Command{
		Use:   "dcf77",
		Short: "DCF77 longwave time decoder",
		Long: `DCF77 longwave time decoder for Raspberry Pi GPIO receivers.

Samples a DCF77 receiver module's digital output pin at 1kHz, decodes the
pulse-width-modulated minute frame using a correlation-based phase tracker and
BCD field correlators, validates parity, and prints the resulting wall
clock time once a minute.

Example usage:
  dcf77 --gpio-chip gpiochip0 --gpio-line 4 --log-dir ./logs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			if config.ConfigPath != "" {
				loaded := config
				if err := app.LoadConfig(config.ConfigPath, &loaded); err != nil {
					return err
				}
				if !cmd.Flags().Changed("gpio-chip") {
					config.GPIOChip = loaded.GPIOChip
				}
				if !cmd.Flags().Changed("gpio-line") {
					config.GPIOLine = loaded.GPIOLine
				}
				if !cmd.Flags().Changed("invert") {
					config.Invert = loaded.Invert
				}
				if !cmd.Flags().Changed("log-dir") {
					config.LogDir = loaded.LogDir
				}
				if !cmd.Flags().Changed("max-log-days") {
					config.MaxLogDays = loaded.MaxLogDays
				}
				if !cmd.Flags().Changed("utc") {
					config.LogRotateUTC = loaded.LogRotateUTC
				}
				if !cmd.Flags().Changed("verbose") {
					config.Verbose = loaded.Verbose
				}
			}

			application := app.NewApplication(config)
			return application.Start()
		},
	}

	rootCmd.Flags().StringVar(&config.GPIOChip, "gpio-chip", app.DefaultGPIOChip, "GPIO chip device (e.g. gpiochip0)")
	rootCmd.Flags().IntVar(&config.GPIOLine, "gpio-line", app.DefaultGPIOLine, "GPIO line offset the receiver module is wired to")
	rootCmd.Flags().BoolVar(&config.Invert, "invert", false, "Invert the receiver's output polarity (idle high)")
	rootCmd.Flags().StringVarP(&config.LogDir, "log-dir", "l", app.DefaultLogDir, "Log directory")
	rootCmd.Flags().BoolVarP(&config.LogRotateUTC, "utc", "u", true, "Use UTC for log rotation")
	rootCmd.Flags().IntVar(&config.MaxLogDays, "max-log-days", app.DefaultMaxLogDays, "Days to retain rotated logs (older logs are removed at startup)")
	rootCmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")
	rootCmd.Flags().StringVar(&config.ConfigPath, "config", "", "Path to a YAML config file (flags override its values)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
