/*
   rv64core - smoke-run configuration file parser.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package config reads the small "key = value" file cmd/rv64core uses to
// pick build-time feature switches and the initial smoke-run state.
//
// Grammar:
//
//	<line>    := '#' <comment> | <key> '=' <value>
//	<key>     := letters, digits, underscore
//	<value>   := rest of line, trimmed
package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Config is the set of key/value pairs from one file; it keeps no
// record of their order.
type Config struct {
	values map[string]string
}

// Parse reads key=value pairs from r. A line beginning with '#' (after
// trimming) is a comment. Blank lines are ignored. Duplicate keys keep
// the last value seen, matching the teacher's configparser precedent of
// "later directive wins".
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{values: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config: line %d: expected key=value, got %q", lineNum, line)
		}
		cfg.values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// String returns the raw value for key, or def if key is absent.
func (c *Config) String(key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Bool parses key as a boolean ("true"/"false"/"1"/"0"), or returns def.
func (c *Config) Bool(key string, def bool) bool {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Uint parses key as an unsigned integer (0x-prefixed hex allowed), or
// returns def.
func (c *Config) Uint(key string, def uint64) uint64 {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}
