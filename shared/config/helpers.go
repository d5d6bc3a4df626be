package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// env reads typed values from the process environment. An unset or blank
// key yields the default; a malformed one yields the default and is
// remembered so Load can reject it.
type env struct {
	errs []error
}

func (e *env) lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (e *env) invalid(key, value, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q is not a valid %s", key, value, want))
}

func (e *env) str(key, def string) string {
	if value, ok := e.lookup(key); ok {
		return value
	}
	return def
}

func (e *env) integer(key string, def int) int {
	value, ok := e.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.invalid(key, value, "integer")
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	value, ok := e.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.invalid(key, value, "boolean")
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	value, ok := e.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.invalid(key, value, "duration")
		return def
	}
	return d
}

func (e *env) err() error {
	return errors.Join(e.errs...)
}
