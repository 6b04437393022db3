// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package osutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

const (
	DefaultDirPerm  = 0755
	DefaultFilePerm = 0644
)

// IsExist returns true if the file name exists.
func IsExist(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func MkdirAll(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

// WriteFile writes data to filename creating parent directories as necessary.
func WriteFile(filename string, data []byte) error {
	if err := MkdirAll(filepath.Dir(filename)); err != nil {
		return err
	}
	return os.WriteFile(filename, data, DefaultFilePerm)
}

// ReadFile reads the whole file, transparently decompressing files with .xz extension.
func ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(filename, ".xz") {
		return data, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%v: xz reader failed: %w", filename, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%v: xz decompression failed: %w", filename, err)
	}
	return out, nil
}
