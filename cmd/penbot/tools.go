package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"penbot/pkg/calibration"
	"penbot/pkg/drawing"
	"penbot/pkg/nvram"
)

// DefaultEEPROMSize matches the ATmega328P EEPROM.
const DefaultEEPROMSize = 1024

// convertFile translates between the C header and blob formats. A .h
// input produces a blob; anything else is read as a blob and written as a
// header named name.
func convertFile(in, out, name string) error {
	src, err := os.Open(in)
	if err != nil {
		return err
	}
	defer src.Close()

	var (
		write func(io.Writer) error
		count uint16
	)
	if strings.EqualFold(filepath.Ext(in), ".h") {
		img, err := drawing.ParseHeader(src, in)
		if err != nil {
			return err
		}
		count = img.Count()
		write = func(w io.Writer) error { return drawing.WriteBlob(w, img) }
	} else {
		b, err := drawing.ReadBlob(src)
		if err != nil {
			return err
		}
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(out), filepath.Ext(out))
		}
		count = b.Count()
		write = func(w io.Writer) error { return drawing.WriteHeader(w, name, b) }
	}

	dst, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := write(dst); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	fmt.Printf("%s: %d segments -> %s\n", in, count, out)
	return nil
}

func newConvertCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "convert INPUT OUTPUT",
		Short: "Convert an image header (.h) to a blob, or a blob to a header",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return convertFile(args[0], args[1], name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Image name for header output (default: output file name)")
	return cmd
}

func writeEEPROM(path string, offset int64, size int, d calibration.Data) error {
	if err := d.Validate(); err != nil {
		return err
	}
	img, err := nvram.OpenFile(path, size)
	if err != nil {
		return err
	}
	if err := calibration.Store(img, offset, d); err != nil {
		img.Close()
		return err
	}
	return img.Close()
}

func readEEPROM(path string, offset int64) (calibration.Data, error) {
	// OpenFile would create the image.
	if _, err := os.Stat(path); err != nil {
		return calibration.Data{}, err
	}
	img, err := nvram.OpenFile(path, 0)
	if err != nil {
		return calibration.Data{}, err
	}
	defer img.Close()
	return calibration.Load(img, offset)
}

func newEEPROMCmd() *cobra.Command {
	var (
		offset int64
		size   int
		d      = calibration.Default
	)
	cmd := &cobra.Command{
		Use:   "eeprom",
		Short: "Read or write the calibration record in an EEPROM image",
	}
	cmd.PersistentFlags().Int64Var(&offset, "offset", 0, "Record offset in bytes")

	write := &cobra.Command{
		Use:   "write IMAGE",
		Short: "Store a calibration record; unset fields come from --config or defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := calibration.Default
			if opts.configPath != "" {
				cfg, err := loadConfig(opts.configPath)
				if err != nil {
					return err
				}
				if !cfg.Calibration.FromEEPROM() {
					base = cfg.Calibration.Data
				}
			}
			f := cmd.Flags()
			if !f.Changed("angle-offset") {
				d.AngleOffset = base.AngleOffset
			}
			if !f.Changed("left-fraction") {
				d.LeftFraction = base.LeftFraction
			}
			if !f.Changed("right-fraction") {
				d.RightFraction = base.RightFraction
			}
			if !f.Changed("pen-down") {
				d.PenDown = base.PenDown
			}
			if !f.Changed("pen-up") {
				d.PenUp = base.PenUp
			}
			if err := writeEEPROM(args[0], offset, size, d); err != nil {
				return err
			}
			fmt.Printf("%s@%d: %s\n", args[0], offset, d)
			return nil
		},
	}
	wf := write.Flags()
	wf.IntVar(&size, "size", DefaultEEPROMSize, "Image size when creating a new file")
	wf.Int16Var(&d.AngleOffset, "angle-offset", d.AngleOffset, "Rotation bias in 1/256 steps")
	wf.Int16Var(&d.LeftFraction, "left-fraction", d.LeftFraction, "Left wheel ratio, Q14")
	wf.Int16Var(&d.RightFraction, "right-fraction", d.RightFraction, "Right wheel ratio, Q14")
	wf.Uint16Var(&d.PenDown, "pen-down", d.PenDown, "Pen down pulse width in µs")
	wf.Uint16Var(&d.PenUp, "pen-up", d.PenUp, "Pen up pulse width in µs")

	show := &cobra.Command{
		Use:   "show IMAGE",
		Short: "Print the calibration record",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := readEEPROM(args[0], offset)
			if err != nil {
				return err
			}
			fmt.Printf("%s@%d: %s\n", args[0], offset, d)
			return nil
		},
	}

	cmd.AddCommand(write, show)
	return cmd
}
