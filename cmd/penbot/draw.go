package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"penbot/pkg/drawing"
)

// loadImages reads every blob up front so a bad file fails before any
// motion.
func loadImages(paths []string) ([]drawing.Named, error) {
	images := make([]drawing.Named, 0, len(paths))
	for _, p := range paths {
		b, err := drawing.LoadBlob(p)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		images = append(images, drawing.Named{Image: b, Name: name})
	}
	return images, nil
}

// drawAll plays images in rotation, cycles times over the list, or until
// interrupted when cycles is zero.
func drawAll(s *session, images []drawing.Named, cycles int) error {
	for c := 0; cycles == 0 || c < cycles; c++ {
		for _, img := range images {
			ok := s.drv.DrawImage(s.interrupted(), img)
			if err := s.check("draw "+img.Name, ok); err != nil {
				return err
			}
		}
	}
	return nil
}

func runDraw(ctx context.Context, o globalOptions, paths []string, cycles int) error {
	images, err := loadImages(paths)
	if err != nil {
		return err
	}
	s, err := openSession(ctx, o)
	if err != nil {
		return err
	}
	defer s.Close()
	return drawAll(s, images, cycles)
}

func newDrawCmd() *cobra.Command {
	var cycles int
	cmd := &cobra.Command{
		Use:   "draw IMAGE.bin [IMAGE.bin...]",
		Short: "Draw one or more images in rotation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDraw(cmd.Context(), opts, args, cycles)
		},
	}
	cmd.Flags().IntVar(&cycles, "cycles", 1, "Passes over the image list; 0 repeats until stopped")
	return cmd
}

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate IMAGE.bin [IMAGE.bin...]",
		Short: "Draw on virtual hardware and render the pen trace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o := opts
			o.backend = backendSim
			if o.render == "" {
				name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				o.render = name + ".png"
			}
			return runDraw(cmd.Context(), o, args, 1)
		},
	}
}

func newTestDriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-drive",
		Short: "Drive 30 m straight with the pen up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.check("test drive", s.drv.TestDrive(s.interrupted()))
		},
	}
}

func newCalibrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate",
		Short: "Draw the calibration pattern",
		Long: `Draws a 200 mm line, turns around with three extra full turns and
draws a second 200 mm line. The offset between the lines shows the
wheel ratio and rotation bias corrections to apply.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()
			err = s.check("calibration", s.drv.Calibration(s.interrupted()))
			if err == nil {
				s.log.WithField("calibration", s.drv.CalibrationData().String()).Info("calibration pattern drawn")
			}
			return err
		},
	}
}
