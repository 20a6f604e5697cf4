package config

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Section is one [name] block. Option names are case-insensitive.
type Section struct {
	name    string
	options map[string]string

	mu       sync.Mutex
	accessed map[string]struct{}
}

func newSection(name string, options map[string]string) *Section {
	s := &Section{
		name:     name,
		options:  make(map[string]string, len(options)),
		accessed: make(map[string]struct{}),
	}
	s.merge(options)
	return s
}

func (s *Section) merge(options map[string]string) {
	for k, v := range options {
		s.options[strings.ToLower(k)] = v
	}
}

// GetName returns the section name.
func (s *Section) GetName() string {
	return s.name
}

// Suffix returns the part of the name after the first space, so
// "stepper left" yields "left".
func (s *Section) Suffix() string {
	_, after, _ := strings.Cut(s.name, " ")
	return strings.TrimSpace(after)
}

// HasOption checks if an option exists in this section.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// GetUnusedOptions returns the options no getter asked for.
func (s *Section) GetUnusedOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []string
	for opt := range s.options {
		if _, ok := s.accessed[opt]; !ok {
			result = append(result, opt)
		}
	}
	return result
}

// lookup marks option used and returns its raw value.
func (s *Section) lookup(option string) (string, bool) {
	key := strings.ToLower(option)
	s.mu.Lock()
	s.accessed[key] = struct{}{}
	s.mu.Unlock()
	v, ok := s.options[key]
	return strings.TrimSpace(v), ok
}

// getTyped implements the fallback convention shared by all getters: a
// present option is parsed, an absent one takes the first fallback, and
// without a fallback it is an error.
func getTyped[T any](s *Section, option string, parse func(string) (T, error), fallback []T) (T, error) {
	var zero T
	v, ok := s.lookup(option)
	if !ok {
		if len(fallback) > 0 {
			return fallback[0], nil
		}
		return zero, ErrMissingOption(s.name, option)
	}
	out, err := parse(v)
	if err != nil {
		return zero, err
	}
	return out, nil
}

// Get returns a string option.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	return getTyped(s, option, func(v string) (string, error) { return v, nil }, fallback)
}

// GetInt returns an integer option. Hex values with a 0x prefix are
// accepted.
func (s *Section) GetInt(option string, fallback ...int) (int, error) {
	return getTyped(s, option, func(v string) (int, error) {
		i, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return 0, ErrInvalidValue(s.name, option, v, "integer")
		}
		return int(i), nil
	}, fallback)
}

// GetIntRange returns an integer option constrained to [minVal, maxVal].
func (s *Section) GetIntRange(option string, minVal, maxVal int, fallback ...int) (int, error) {
	v, err := s.GetInt(option, fallback...)
	if err != nil {
		return 0, err
	}
	if v < minVal {
		return 0, ErrOutOfRange(s.name, option, int64(v), "must have minimum of "+strconv.Itoa(minVal))
	}
	if v > maxVal {
		return 0, ErrOutOfRange(s.name, option, int64(v), "must have maximum of "+strconv.Itoa(maxVal))
	}
	return v, nil
}

// GetFloat returns a float64 option.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	return getTyped(s, option, func(v string) (float64, error) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, ErrInvalidValue(s.name, option, v, "float")
		}
		return f, nil
	}, fallback)
}

// GetBool accepts 1/true/yes/on and 0/false/no/off.
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	return getTyped(s, option, func(v string) (bool, error) {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
		return false, ErrInvalidValue(s.name, option, v, "boolean (true/false/yes/no/on/off/1/0)")
	}, fallback)
}

// GetDuration parses Go duration syntax such as "250ms".
func (s *Section) GetDuration(option string, fallback ...time.Duration) (time.Duration, error) {
	return getTyped(s, option, func(v string) (time.Duration, error) {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, ErrInvalidValue(s.name, option, v, "duration")
		}
		return d, nil
	}, fallback)
}

// GetChoice returns a string option that must be one of choices.
func (s *Section) GetChoice(option string, choices []string, fallback ...string) (string, error) {
	v, err := s.Get(option, fallback...)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if strings.EqualFold(v, c) {
			return c, nil
		}
	}
	return "", ErrInvalidChoice(s.name, option, v, choices)
}

// GetList splits an option on sep, dropping empty items.
func (s *Section) GetList(option, sep string, fallback ...[]string) ([]string, error) {
	return getTyped(s, option, func(v string) ([]string, error) {
		var out []string
		for _, p := range strings.Split(v, sep) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}, fallback)
}

// GetIntList splits an option on sep and parses each item as an integer.
func (s *Section) GetIntList(option, sep string, fallback ...[]int) ([]int, error) {
	if !s.HasOption(option) {
		s.lookup(option)
		if len(fallback) > 0 {
			return fallback[0], nil
		}
		return nil, ErrMissingOption(s.name, option)
	}
	items, err := s.GetList(option, sep)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(items))
	for _, p := range items {
		i, err := strconv.ParseInt(p, 0, 64)
		if err != nil {
			return nil, ErrInvalidValue(s.name, option, p, "integer")
		}
		out = append(out, int(i))
	}
	return out, nil
}
