package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"penbot/pkg/calibration"
	perrors "penbot/pkg/errors"
)

func TestLoadString(t *testing.T) {
	c, err := LoadString(`
# leading comment
[servo]
pin: gpio18   # trailing comment
period_us = 20000

[stepper left]
coil_pins: gpio5, gpio6, gpio13, gpio19

[servo]
pin: gpio12
`)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.GetSectionNames(); len(got) != 2 || got[0] != "servo" || got[1] != "stepper left" {
		t.Errorf("sections = %v", got)
	}
	sec, err := c.GetSection("servo")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := sec.Get("pin"); v != "gpio12" {
		t.Errorf("merged pin = %q", v)
	}
	if v, _ := sec.GetInt("PERIOD_US"); v != 20000 {
		t.Errorf("period_us = %d", v)
	}
}

func TestLoadStringErrors(t *testing.T) {
	tests := map[string]string{
		"empty header":  "[]\n",
		"orphan option": "key: value\n",
		"no separator":  "[a]\njust words\n",
		"include":       "[include other.cfg]\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadString(text); err == nil {
				t.Errorf("expected error for %q", text)
			}
		})
	}
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	write("cal.cfg", "[calibration]\nangle_offset: 12\n")
	main := write("penbot.cfg", "[include cal.cfg]\n[driver]\npen_settle_ms: 150\n")

	c, err := Load(main)
	if err != nil {
		t.Fatal(err)
	}
	if !c.HasSection("calibration") || !c.HasSection("driver") {
		t.Errorf("sections = %v", c.GetSectionNames())
	}

	loop := write("loop.cfg", "[include loop.cfg]\n")
	if _, err := Load(loop); err == nil || !strings.Contains(err.Error(), "recursive") {
		t.Errorf("recursive include: err = %v", err)
	}
	missing := write("missing.cfg", "[include nothere.cfg]\n")
	if _, err := Load(missing); err == nil {
		t.Error("missing include accepted")
	}
}

func TestTypedGetters(t *testing.T) {
	c, _ := LoadString(`
[t]
i: 0x10
b: yes
f: 2.5
d: 250ms
l: a, b,, c
il: 1, 2, 3
choice: JSON
bad: nope
`)
	sec, _ := c.GetSection("t")
	if v, err := sec.GetInt("i"); err != nil || v != 16 {
		t.Errorf("GetInt = %d, %v", v, err)
	}
	if v, err := sec.GetBool("b"); err != nil || !v {
		t.Errorf("GetBool = %v, %v", v, err)
	}
	if v, err := sec.GetFloat("f"); err != nil || v != 2.5 {
		t.Errorf("GetFloat = %v, %v", v, err)
	}
	if v, err := sec.GetDuration("d"); err != nil || v.Milliseconds() != 250 {
		t.Errorf("GetDuration = %v, %v", v, err)
	}
	if v, err := sec.GetList("l", ","); err != nil || strings.Join(v, "|") != "a|b|c" {
		t.Errorf("GetList = %v, %v", v, err)
	}
	if v, err := sec.GetIntList("il", ","); err != nil || len(v) != 3 || v[2] != 3 {
		t.Errorf("GetIntList = %v, %v", v, err)
	}
	if v, err := sec.GetChoice("choice", []string{"text", "json"}); err != nil || v != "json" {
		t.Errorf("GetChoice = %q, %v", v, err)
	}
	if _, err := sec.GetBool("bad"); err == nil {
		t.Error("GetBool accepted 'nope'")
	}
	if v, err := sec.GetInt("absent", 7); err != nil || v != 7 {
		t.Errorf("fallback = %d, %v", v, err)
	}
	if v, err := sec.GetIntList("absent2", ",", []int{9}); err != nil || v[0] != 9 {
		t.Errorf("list fallback = %v, %v", v, err)
	}
	if _, err := sec.GetIntList("absent3", ","); err == nil {
		t.Error("missing list without fallback accepted")
	}
}

func TestMissingAndRange(t *testing.T) {
	c, _ := LoadString("[s]\nn: 50\n")
	sec, _ := c.GetSection("s")
	_, err := sec.Get("missing")
	ce, ok := AsConfigError(err)
	if !ok || ce.Option != "missing" || ce.Section != "s" {
		t.Errorf("missing option error = %v", err)
	}
	if _, err := sec.GetIntRange("n", 0, 10); err == nil {
		t.Error("range not enforced")
	}
	if _, err := c.GetSection("nope"); err == nil {
		t.Error("missing section accepted")
	}
	he := NewConfigError("s", "", "x").HostError()
	if !perrors.Is(he, perrors.ErrConfigSection) {
		t.Errorf("HostError code = %v", he.Code)
	}
}

func TestCheckUnused(t *testing.T) {
	c, _ := LoadString("[used]\na: 1\nb: 2\n[ignored]\nx: 1\n")
	sec, _ := c.GetSection("used")
	sec.Get("a")
	err := c.CheckUnused()
	if err == nil {
		t.Fatal("expected unused report")
	}
	for _, want := range []string{"ignored", "[used]: unused options [b]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestParsePin(t *testing.T) {
	tests := []struct {
		in   string
		want Pin
		ok   bool
	}{
		{"gpio17", Pin{Number: 17}, true},
		{"4", Pin{Number: 4}, true},
		{"^!gpio4", Pin{Number: 4, Invert: true, Pull: PullUp}, true},
		{"~GPIO22", Pin{Number: 22, Pull: PullDown}, true},
		{"gpio40", Pin{}, false},
		{"PA5", Pin{}, false},
		{"", Pin{}, false},
	}
	for _, tt := range tests {
		got, err := ParsePin(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParsePin(%q) err = %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParsePin(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if s := (Pin{Number: 4, Invert: true, Pull: PullUp}).String(); s != "^!gpio4" {
		t.Errorf("String = %q", s)
	}
}

func TestPinListRejectsDuplicates(t *testing.T) {
	c, _ := LoadString("[stepper left]\ncoil_pins: gpio5, gpio5\n")
	sec, _ := c.GetSection("stepper left")
	if _, err := sec.GetPinList("coil_pins"); err == nil {
		t.Error("duplicate pins accepted")
	}
}

func TestParsePlotterDefaults(t *testing.T) {
	c, _ := LoadString("")
	pc, err := ParsePlotter(c)
	if err != nil {
		t.Fatal(err)
	}
	if pc.Calibration.Data != calibration.Default || pc.Calibration.FromEEPROM() {
		t.Errorf("calibration = %+v", pc.Calibration)
	}
	if pc.Driver.PenSettleUs != 200000 || pc.Driver.LiftPenWhenRotating {
		t.Errorf("driver = %+v", pc.Driver)
	}
	if pc.Power.MaxConsecutiveFailures != 2 || pc.Servo.PeriodUs != 20000 {
		t.Errorf("power/servo = %+v %+v", pc.Power, pc.Servo)
	}
}

func TestParsePlotter(t *testing.T) {
	c, err := LoadString(`
[calibration]
angle_offset: -12
left_fraction: 16300
right_fraction: -16400
pen_down: 1500
pen_up: 700

[driver]
lift_pen_when_rotating: true
pen_settle_ms: 120

[stepper left]
coil_pins: gpio5, gpio6, gpio13, gpio19

[stepper right]
coil_pins: gpio12, gpio16, gpio20, gpio21

[servo]
pin: gpio18
period_us: 10000

[power]
max_consecutive_failures: 4
power_good_pin: ^gpio23
stop_pin: ^!gpio24

[metrics]
address: :9101

[status]
address: 127.0.0.1:7125
`)
	if err != nil {
		t.Fatal(err)
	}
	pc, err := ParsePlotter(c)
	if err != nil {
		t.Fatal(err)
	}
	want := calibration.Data{AngleOffset: -12, LeftFraction: 16300, RightFraction: -16400, PenDown: 1500, PenUp: 700}
	if pc.Calibration.Data != want {
		t.Errorf("calibration = %+v", pc.Calibration.Data)
	}
	if !pc.Driver.LiftPenWhenRotating || pc.Driver.PenSettleUs != 120000 {
		t.Errorf("driver = %+v", pc.Driver)
	}
	if len(pc.Left.CoilPins) != 4 || pc.Right.CoilPins[3].Number != 21 {
		t.Errorf("steppers = %+v %+v", pc.Left, pc.Right)
	}
	if !pc.Servo.HasPin || pc.Servo.Pin.Number != 18 || pc.Servo.PeriodUs != 10000 {
		t.Errorf("servo = %+v", pc.Servo)
	}
	if pc.Power.MaxConsecutiveFailures != 4 || pc.Power.StopPin == nil || !pc.Power.StopPin.Invert {
		t.Errorf("power = %+v", pc.Power)
	}
	if pc.Metrics.Address != ":9101" || pc.Status.Address != "127.0.0.1:7125" {
		t.Errorf("servers = %+v %+v", pc.Metrics, pc.Status)
	}
	if err := c.CheckUnused(); err != nil {
		t.Errorf("unused: %v", err)
	}
}

func TestParsePlotterEEPROM(t *testing.T) {
	c, _ := LoadString("[calibration]\neeprom: /var/lib/penbot/eeprom.bin\neeprom_offset: 16\n")
	pc, err := ParsePlotter(c)
	if err != nil {
		t.Fatal(err)
	}
	if !pc.Calibration.FromEEPROM() || pc.Calibration.EEPROMOffset != 16 {
		t.Errorf("calibration = %+v", pc.Calibration)
	}
}

func TestParsePlotterRejects(t *testing.T) {
	tests := map[string]string{
		"fraction overflow": "[calibration]\nleft_fraction: 40000\n",
		"zero fraction":     "[calibration]\nright_fraction: 0\n",
		"bad stepper name":  "[stepper middle]\ncoil_pins: 1, 2\n",
		"one coil":          "[stepper left]\ncoil_pins: 1\n",
		"bad bool":          "[driver]\nlift_pen_when_rotating: maybe\n",
		"short period":      "[servo]\nperiod_us: 100\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			c, err := LoadString(text)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := ParsePlotter(c); err == nil {
				t.Error("expected error")
			}
		})
	}
}
