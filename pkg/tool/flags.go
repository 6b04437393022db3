// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"fmt"
	"strings"
)

// ListFlag is a comma-separated list flag value that may also be repeated:
// "-idioms a.idiom,b.idiom -idioms c.idiom".
type ListFlag []string

func (l *ListFlag) String() string {
	return fmt.Sprint(*l)
}

func (l *ListFlag) Set(value string) error {
	for _, elem := range strings.Split(value, ",") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			return fmt.Errorf("empty element in list %q", value)
		}
		*l = append(*l, elem)
	}
	return nil
}
