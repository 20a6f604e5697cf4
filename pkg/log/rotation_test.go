// Log rotation tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "penbot.log")
	w, err := NewRotatingFileWriter(RotationConfig{Filename: path})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatal(err)
	}
	if w.Size() != 6 {
		t.Errorf("Size = %d, want 6", w.Size())
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello\n" {
		t.Errorf("file = %q", data)
	}
}

func TestRotatingFileWriterShiftsBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penbot.log")
	w, err := NewRotatingFileWriter(RotationConfig{Filename: path, MaxSize: 1, MaxBackups: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	chunk := []byte(strings.Repeat("x", 700<<10))
	for i := 0; i < 4; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	for _, name := range []string{path, path + ".1", path + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Error("backup beyond MaxBackups was kept")
	}
}

func TestRotationRequiresFilename(t *testing.T) {
	if _, err := NewRotatingFileWriter(RotationConfig{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tee.log")
	l, buf := newTestLogger("tee")
	fw, err := Tee(l, RotationConfig{Filename: path})
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()
	l.Info("both")
	data, _ := os.ReadFile(path)
	if !strings.Contains(buf.String(), "both") || !strings.Contains(string(data), "both") {
		t.Errorf("buffer %q file %q", buf.String(), data)
	}
}
