package sim

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// RenderOptions controls the PNG output.
type RenderOptions struct {
	Title  string
	SizeIn float64 // square canvas edge in inches
	DPI    int
}

func (o RenderOptions) withDefaults() RenderOptions {
	if o.SizeIn <= 0 {
		o.SizeIn = 6
	}
	if o.DPI <= 0 {
		o.DPI = 150
	}
	return o
}

// Render draws strokes as a PNG with equal axis scales.
func Render(w io.Writer, strokes [][]Point, opts RenderOptions) error {
	opts = opts.withDefaults()
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"
	p.Add(plotter.NewGrid())

	lo, hi := Point{X: -10, Y: -10}, Point{X: 10, Y: 10}
	first := true
	for _, stroke := range strokes {
		if len(stroke) < 2 {
			continue
		}
		pts := make(plotter.XYs, len(stroke))
		for i, pt := range stroke {
			pts[i].X, pts[i].Y = pt.X, pt.Y
			if first {
				lo, hi, first = pt, pt, false
			}
			lo = Point{X: math.Min(lo.X, pt.X), Y: math.Min(lo.Y, pt.Y)}
			hi = Point{X: math.Max(hi.X, pt.X), Y: math.Max(hi.Y, pt.Y)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("sim: stroke: %w", err)
		}
		line.LineStyle.Width = vg.Points(1.2)
		line.LineStyle.Color = color.Black
		p.Add(line)
	}

	// square the ranges so circles stay round
	span := math.Max(hi.X-lo.X, hi.Y-lo.Y)*1.05 + 1
	cx, cy := (lo.X+hi.X)/2, (lo.Y+hi.Y)/2
	p.X.Min, p.X.Max = cx-span/2, cx+span/2
	p.Y.Min, p.Y.Max = cy-span/2, cy+span/2

	size := vg.Length(opts.SizeIn) * vg.Inch
	c := vgimg.NewWith(vgimg.UseWH(size, size), vgimg.UseDPI(opts.DPI))
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("sim: write png: %w", err)
	}
	return nil
}

// RenderFile writes the PNG to path, creating parent directories.
func RenderFile(path string, strokes [][]Point, opts RenderOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Render(bw, strokes, opts); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("sim: %w", err)
	}
	return f.Close()
}
