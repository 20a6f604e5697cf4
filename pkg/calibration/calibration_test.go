package calibration

import (
	"bytes"
	"testing"

	"penbot/pkg/errors"
	"penbot/pkg/nvram"
)

func TestDecodeLayout(t *testing.T) {
	raw := []byte{
		0x00, 0x01, // angle_offset 256
		0x00, 0x40, // left 1<<14
		0x00, 0xC0, // right -(1<<14)
		0x78, 0x05, // pen_down 1400
		0x20, 0x03, // pen_up 800
	}
	d, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := Data{AngleOffset: 256, LeftFraction: 1 << 14, RightFraction: -(1 << 14), PenDown: 1400, PenUp: 800}
	if d != want {
		t.Errorf("Decode = %+v, want %+v", d, want)
	}
	if !bytes.Equal(d.Encode(), raw) {
		t.Errorf("Encode = % x", d.Encode())
	}
}

func TestDecodeShort(t *testing.T) {
	_, err := Decode(make([]byte, RecordSize-1))
	if !errors.Is(err, errors.ErrCalibration) {
		t.Fatalf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		d    Data
		ok   bool
	}{
		{"default", Default, true},
		{"mirrored wheel", Data{LeftFraction: 16300, RightFraction: -16400, PenDown: 1500, PenUp: 700}, true},
		{"zero fraction", Data{LeftFraction: 0, RightFraction: UnitFraction, PenDown: 1400, PenUp: 800}, false},
		{"tiny fraction", Data{LeftFraction: UnitFraction, RightFraction: -1, PenDown: 1400, PenUp: 800}, false},
		{"zero pen", Data{LeftFraction: UnitFraction, RightFraction: UnitFraction, PenDown: 0, PenUp: 800}, false},
		{"wide pen", Data{LeftFraction: UnitFraction, RightFraction: UnitFraction, PenDown: 1400, PenUp: 3001}, false},
		{"erased", Data{AngleOffset: -1, LeftFraction: -1, RightFraction: -1, PenDown: 0xFFFF, PenUp: 0xFFFF}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.d.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadStore(t *testing.T) {
	mem := nvram.NewMemory(64)
	d := Data{AngleOffset: -7, LeftFraction: 16000, RightFraction: 16500, PenDown: 1500, PenUp: 900}
	if err := Store(mem, 20, d); err != nil {
		t.Fatal(err)
	}
	got, err := Load(mem, 20)
	if err != nil {
		t.Fatal(err)
	}
	if got != d {
		t.Errorf("Load = %+v, want %+v", got, d)
	}
	if _, err := Load(mem, 60); !errors.Is(err, errors.ErrStorage) {
		t.Errorf("read past end: err = %v", err)
	}
}
