package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	argumentSeparator = ";"
	keyValueSeparator = "="
)

// Arguments holds a source's module arguments. They are stored as a
// semicolon-delimited list of key=value pairs, e.g. "url=https://x/rss;weight=2".
type Arguments map[string]string

// ParseArguments decodes the semicolon-delimited key=value encoding.
// Empty segments are skipped and a value may itself contain '='.
func ParseArguments(encoded string) (Arguments, error) {
	args := Arguments{}
	for _, segment := range strings.Split(encoded, argumentSeparator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, keyValueSeparator)
		if !found {
			return nil, fmt.Errorf("argument %q is missing '%s'", segment, keyValueSeparator)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("argument %q has an empty key", segment)
		}
		args[key] = strings.TrimSpace(value)
	}
	return args, nil
}

// Encode renders the arguments back into their stored form. Keys are sorted
// so that equal maps always encode identically.
func (a Arguments) Encode() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+keyValueSeparator+a[k])
	}
	return strings.Join(pairs, argumentSeparator)
}

// String returns the value for key, or def when the key is absent or blank.
func (a Arguments) String(key, def string) string {
	if v, ok := a[key]; ok && v != "" {
		return v
	}
	return def
}

func (a Arguments) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("argument %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func (a Arguments) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("argument %s=%q is not a boolean: %w", key, v, err)
	}
	return b, nil
}

// Duration parses a Go duration ("90m", "72h"). A bare integer is read as days,
// which is how recency cutoffs are usually configured by hand.
func (a Arguments) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	if days, err := strconv.Atoi(v); err == nil {
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("argument %s=%q is not a duration: %w", key, v, err)
	}
	return d, nil
}
