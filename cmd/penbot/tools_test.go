package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"penbot/pkg/calibration"
	"penbot/pkg/drawing"
	"penbot/pkg/errors"
	"penbot/pkg/safety"
)

var square = drawing.Slice{
	{Len: 50, Angle: 0, Pen: true},
	{Len: 50, Angle: 4096, Pen: true},
	{Len: 50, Angle: 4096, Pen: true},
	{Len: 50, Angle: 4096, Pen: true},
}

func writeBlob(t *testing.T, dir, name string, img drawing.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := drawing.WriteBlob(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	blob := writeBlob(t, dir, "square.bin", square)
	header := filepath.Join(dir, "square.h")
	back := filepath.Join(dir, "back.bin")

	if err := convertFile(blob, header, ""); err != nil {
		t.Fatalf("blob to header: %v", err)
	}
	text, err := os.ReadFile(header)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "const Image ksquare PROGMEM = { 4, ksquareData };") {
		t.Errorf("header does not declare the image name:\n%s", text)
	}

	if err := convertFile(header, back, ""); err != nil {
		t.Fatalf("header to blob: %v", err)
	}
	want, _ := os.ReadFile(blob)
	got, _ := os.ReadFile(back)
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestConvertMissingInput(t *testing.T) {
	dir := t.TempDir()
	if err := convertFile(filepath.Join(dir, "none.bin"), filepath.Join(dir, "out.h"), "x"); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestEEPROMWriteShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")
	d := calibration.Default
	d.AngleOffset = 300
	d.PenDown = 1500

	if err := writeEEPROM(path, 16, DefaultEEPROMSize, d); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != DefaultEEPROMSize {
		t.Errorf("image size = %d, want %d", info.Size(), DefaultEEPROMSize)
	}

	got, err := readEEPROM(path, 16)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != d {
		t.Errorf("read back %v, want %v", got, d)
	}

	// Existing images keep their contents on rewrite.
	d.PenUp = 900
	if err := writeEEPROM(path, 16, 0, d); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if got, _ := readEEPROM(path, 16); got != d {
		t.Errorf("after rewrite %v, want %v", got, d)
	}
}

func TestEEPROMRejects(t *testing.T) {
	dir := t.TempDir()
	bad := calibration.Default
	bad.LeftFraction = 0
	path := filepath.Join(dir, "eeprom.bin")
	if err := writeEEPROM(path, 0, DefaultEEPROMSize, bad); err == nil {
		t.Error("expected validation error")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("invalid record should not create an image")
	}
	if _, err := readEEPROM(filepath.Join(dir, "missing.bin"), 0); err == nil {
		t.Error("expected error for missing image")
	}
}

func TestSimulateDraw(t *testing.T) {
	dir := t.TempDir()
	blob := writeBlob(t, dir, "square.bin", square)
	images, err := loadImages([]string{blob})
	if err != nil {
		t.Fatal(err)
	}
	if images[0].Name != "square" {
		t.Errorf("name = %q, want square", images[0].Name)
	}

	render := filepath.Join(dir, "square.png")
	s, err := openSession(context.Background(), globalOptions{
		backend:   backendSim,
		logLevel:  "error",
		logFormat: "text",
		render:    render,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := drawAll(s, images, 2); err != nil {
		t.Fatalf("draw: %v", err)
	}
	if n := len(s.robot.Tracker.Strokes()); n == 0 {
		t.Error("no strokes traced")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(render); err != nil {
		t.Errorf("render not written: %v", err)
	}
}

func TestSimulateStopped(t *testing.T) {
	dir := t.TempDir()
	images, err := loadImages([]string{writeBlob(t, dir, "square.bin", square)})
	if err != nil {
		t.Fatal(err)
	}
	s, err := openSession(context.Background(), globalOptions{backend: backendSim, logLevel: "error"})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	s.mon.RequestStop(safety.ReasonUserStop)
	err = drawAll(s, images, 1)
	if !errors.Is(err, errors.ErrInterrupted) {
		t.Fatalf("err = %v, want interrupted", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := openSession(context.Background(), globalOptions{backend: "lpt", logLevel: "error"})
	if !errors.Is(err, errors.ErrInvalidHardware) {
		t.Fatalf("err = %v, want invalid hardware", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, 0},
		{"image", errors.ImageFormatError("short"), exitBadInput},
		{"calibration", errors.CalibrationError("zero"), exitBadInput},
		{"interrupted", errors.InterruptedError("draw", "user_stop"), exitInterrupted},
		{"other", os.ErrNotExist, exitFailure},
		{"config", func() error { _, err := loadConfig(badConfig(t)); return err }(), exitBadInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func badConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "penbot.cfg")
	if err := os.WriteFile(path, []byte("[power]\nmax_consecutive_failures: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
