// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

type lineKind int

const (
	lineInsn lineKind = iota
	lineGap
)

// line is a classified non-blank idiom line.
type line struct {
	kind lineKind
	pos  Pos
	text string

	// lineInsn.
	mnemonic string
	operands string

	// lineGap.
	lists []gapList
}

// gapList is a {reads} or [writes] list on a gap line.
type gapList struct {
	access Access
	negate bool
	tokens []string
}

const gapMarker = "..."

var mnemonicRe = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_.+\-]{0,20})(?:\s+(.*))?$`)

// scanner splits idiom source into classified lines. It makes a single pass over the source.
type scanner struct {
	s         *bufio.Scanner
	filename  string
	line      int
	inComment bool
	commentAt int
	err       *Error
}

func newScanner(data []byte, filename string) *scanner {
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(nil, 1<<20)
	return &scanner{
		s:        s,
		filename: filename,
	}
}

// Scan returns the next line, or nil at the end of input or on error (see Err).
func (s *scanner) Scan() *line {
	for s.err == nil && s.s.Scan() {
		s.line++
		wasComment := s.inComment
		text := strings.TrimSpace(s.stripComments(s.s.Text()))
		if !wasComment && s.inComment {
			s.commentAt = s.line
		}
		if text == "" {
			continue
		}
		ln := &line{
			pos:  Pos{File: s.filename, Line: s.line},
			text: text,
		}
		if strings.HasPrefix(text, gapMarker) {
			ln.kind = lineGap
			ln.lists = s.scanGap(ln.pos, text[len(gapMarker):])
		} else if m := mnemonicRe.FindStringSubmatch(text); m != nil {
			ln.kind = lineInsn
			ln.mnemonic = m[1]
			ln.operands = m[2]
		} else {
			s.error(ln.pos, text, "line does not start with a mnemonic")
		}
		if s.err != nil {
			return nil
		}
		return ln
	}
	if s.err == nil {
		if err := s.s.Err(); err != nil {
			s.error(Pos{File: s.filename, Line: s.line + 1}, "", "%v", err)
		} else if s.inComment {
			s.error(Pos{File: s.filename, Line: s.commentAt}, "/*", "unterminated comment")
		}
	}
	return nil
}

func (s *scanner) Err() *Error {
	return s.err
}

// stripComments removes // and /* */ comments; block comments may span lines.
func (s *scanner) stripComments(text string) string {
	var res strings.Builder
	for i := 0; i < len(text); {
		if s.inComment {
			end := strings.Index(text[i:], "*/")
			if end == -1 {
				break
			}
			s.inComment = false
			i += end + 2
			continue
		}
		if strings.HasPrefix(text[i:], "//") {
			break
		}
		if strings.HasPrefix(text[i:], "/*") {
			s.inComment = true
			i += 2
			// Keep tokens on both sides of an inline comment apart.
			res.WriteByte(' ')
			continue
		}
		res.WriteByte(text[i])
		i++
	}
	return res.String()
}

// scanGap parses the constraint lists after the gap marker: at most one read list
// and one write list, each optionally negated with ^ either before or inside the brackets.
func (s *scanner) scanGap(pos Pos, rest string) []gapList {
	var lists []gapList
	seen := make(map[Access]bool)
	for {
		rest = strings.TrimLeft(rest, " \t,")
		if rest == "" {
			return lists
		}
		list := gapList{}
		if rest[0] == '^' {
			list.negate = true
			rest = strings.TrimLeft(rest[1:], " \t")
		}
		var closing byte
		switch {
		case strings.HasPrefix(rest, "{"):
			list.access, closing = Read, '}'
		case strings.HasPrefix(rest, "["):
			list.access, closing = Write, ']'
		default:
			s.error(pos, rest, "expected {reads} or [writes] list after %v", gapMarker)
			return nil
		}
		end := strings.IndexByte(rest, closing)
		if end == -1 {
			s.error(pos, rest, "unterminated register list")
			return nil
		}
		if seen[list.access] {
			s.error(pos, rest[:end+1], "duplicate %v list", list.access)
			return nil
		}
		seen[list.access] = true
		body := strings.TrimSpace(rest[1:end])
		if strings.HasPrefix(body, "^") {
			if list.negate {
				s.error(pos, rest[:end+1], "list is negated twice")
				return nil
			}
			list.negate = true
			body = body[1:]
		}
		list.tokens = strings.FieldsFunc(body, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		lists = append(lists, list)
		rest = rest[end+1:]
	}
}

func (s *scanner) error(pos Pos, token, msg string, args ...interface{}) {
	if s.err == nil {
		s.err = newError(MalformedLine, pos, token, msg, args...)
	}
}
