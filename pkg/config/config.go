// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config loads JSON tool configs. Lines starting with # are comments
// and unknown fields are rejected so that typos do not go unnoticed.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/ppcidiom/pkg/osutil"
)

var commentRe = regexp.MustCompile(`(^|\n)\s*#[^\n]*`)

func LoadFile(filename string, cfg interface{}) error {
	if filename == "" {
		return fmt.Errorf("no config file specified")
	}
	data, err := osutil.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := LoadData(data, cfg); err != nil {
		return fmt.Errorf("%v: %w", filename, err)
	}
	return nil
}

func LoadData(data []byte, cfg interface{}) error {
	data = commentRe.ReplaceAll(data, nil)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func SaveFile(filename string, cfg interface{}) error {
	data, err := json.MarshalIndent(cfg, "", "\t")
	if err != nil {
		return err
	}
	return osutil.WriteFile(filename, append(data, '\n'))
}
