package config

import (
	"strconv"
	"strings"
)

// Pull selects the input bias resistor of a pin.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Pin is a parsed Broadcom GPIO pin specification.
type Pin struct {
	Number int  // BCM GPIO number
	Invert bool // active-low (! prefix)
	Pull   Pull // ^ pull-up, ~ pull-down
}

func (p Pin) String() string {
	var sb strings.Builder
	switch p.Pull {
	case PullUp:
		sb.WriteByte('^')
	case PullDown:
		sb.WriteByte('~')
	}
	if p.Invert {
		sb.WriteByte('!')
	}
	sb.WriteString("gpio")
	sb.WriteString(strconv.Itoa(p.Number))
	return sb.String()
}

// MaxPin is the highest BCM GPIO number on the 40-pin header SoCs.
const MaxPin = 27

// ParsePin parses "[^|~][!]gpioN" or a bare number.
// Examples: "gpio17", "17", "^!gpio4", "~gpio22".
func ParsePin(desc string) (Pin, error) {
	d := strings.TrimSpace(desc)
	var p Pin
	if d != "" {
		switch d[0] {
		case '^':
			p.Pull, d = PullUp, d[1:]
		case '~':
			p.Pull, d = PullDown, d[1:]
		}
	}
	if strings.HasPrefix(d, "!") {
		p.Invert, d = true, d[1:]
	}
	num := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "gpio")
	n, err := strconv.Atoi(num)
	if err != nil || num == "" {
		return Pin{}, NewConfigError("", "", "invalid pin specification: "+desc)
	}
	if n < 0 || n > MaxPin {
		return Pin{}, NewConfigError("", "", "pin number out of range: "+desc)
	}
	p.Number = n
	return p, nil
}

// GetPin returns a Pin option.
func (s *Section) GetPin(option string, fallback ...Pin) (Pin, error) {
	return getTyped(s, option, func(v string) (Pin, error) {
		pin, err := ParsePin(v)
		if err != nil {
			return Pin{}, WrapError(s.name, option, err)
		}
		return pin, nil
	}, fallback)
}

// GetPinList returns a comma separated list of pins. Every pin must be
// distinct.
func (s *Section) GetPinList(option string) ([]Pin, error) {
	items, err := s.GetList(option, ",")
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(items))
	pins := make([]Pin, 0, len(items))
	for _, item := range items {
		pin, err := ParsePin(item)
		if err != nil {
			return nil, WrapError(s.name, option, err)
		}
		if seen[pin.Number] {
			return nil, ErrInvalidValue(s.name, option, item, "distinct pins")
		}
		seen[pin.Number] = true
		pins = append(pins, pin)
	}
	return pins, nil
}
