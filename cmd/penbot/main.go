// penbot drives a two-wheeled pen plotter: it plays stored drawings,
// runs the test drive and calibration routines, and converts drawing and
// calibration files. The sim backend runs everything on virtual hardware
// and can render the pen trace to a PNG.
//
// Usage:
//
//	penbot draw [flags] image.bin [image.bin...]
//	penbot simulate --render trace.png image.bin
//	penbot convert image.h image.bin
//	penbot eeprom write --left-fraction 16300 eeprom.bin
//
// Examples:
//
//	# Draw on the robot with the pins from penbot.cfg
//	penbot --config penbot.cfg --backend rpio draw cat.bin
//
//	# Check calibration on virtual hardware
//	penbot --backend sim --render cal.png calibrate
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"penbot/pkg/errors"
)

const version = "0.4.0"

type globalOptions struct {
	configPath  string
	backend     string
	logLevel    string
	logFormat   string
	logFile     string
	render      string
	metricsAddr string
	statusAddr  string
}

var (
	opts    globalOptions
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "penbot",
		Short:         "Pen plotter motion control",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Plotter configuration file")
	pf.StringVarP(&opts.backend, "backend", "b", backendSim, "Hardware backend (sim, rpio)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")
	pf.StringVar(&opts.logFile, "log-file", "", "Also write logs to this rotating file")
	pf.StringVar(&opts.render, "render", "", "Render the simulated pen trace to this PNG (sim backend)")
	pf.StringVar(&opts.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address")
	pf.StringVar(&opts.statusAddr, "status", "", "Serve the websocket status API on this address")

	rootCmd.AddCommand(
		newDrawCmd(),
		newSimulateCmd(),
		newTestDriveCmd(),
		newCalibrateCmd(),
		newConvertCmd(),
		newEEPROMCmd(),
	)
}

// Exit codes.
const (
	exitFailure     = 1
	exitBadInput    = 2
	exitInterrupted = 3
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsConfig(err), errors.IsImage(err), errors.Is(err, errors.ErrCalibration):
		return exitBadInput
	case errors.Is(err, errors.ErrInterrupted):
		return exitInterrupted
	}
	return exitFailure
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "penbot:", err)
	}
	os.Exit(exitCode(err))
}
