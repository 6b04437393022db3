// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package idiom

import (
	"fmt"
	"os"
	"strings"
)

type ErrorKind int

const (
	MalformedLine ErrorKind = iota + 1
	UnknownMnemonic
	ExpectedRegisterOperand
	ExpectedOperandExpression
	UnknownRelocationSpecifier
	InvalidVariableOrLiteral
	MissingOperand
	UnboundConstraintVariable
)

var kindNames = [...]string{
	MalformedLine:              "MalformedLine",
	UnknownMnemonic:            "UnknownMnemonic",
	ExpectedRegisterOperand:    "ExpectedRegisterOperand",
	ExpectedOperandExpression:  "ExpectedOperandExpression",
	UnknownRelocationSpecifier: "UnknownRelocationSpecifier",
	InvalidVariableOrLiteral:   "InvalidVariableOrLiteral",
	MissingOperand:             "MissingOperand",
	UnboundConstraintVariable:  "UnboundConstraintVariable",
}

func (kind ErrorKind) String() string {
	if kind <= 0 || int(kind) >= len(kindNames) {
		return fmt.Sprintf("ErrorKind(%d)", int(kind))
	}
	return kindNames[kind]
}

type Pos struct {
	File string
	Line int // 1-based, 0 if unknown
}

func (pos Pos) String() string {
	if pos.Line == 0 {
		return pos.File
	}
	return fmt.Sprintf("%v:%v", pos.File, pos.Line)
}

// Error is a defect in an idiom. All compilation errors are fatal to the idiom.
type Error struct {
	Kind  ErrorKind
	Pos   Pos
	Token string // offending token or line text
	Msg   string
}

func (err *Error) Error() string {
	if err.Token == "" {
		return fmt.Sprintf("%v: %v: %v", err.Pos, err.Kind, err.Msg)
	}
	return fmt.Sprintf("%v: %v: %v: %q", err.Pos, err.Kind, err.Msg, err.Token)
}

type ErrorHandler func(err *Error)

func LoggingHandler(err *Error) {
	fmt.Fprintf(os.Stderr, "%v\n", err)
}

// ErrorList accumulates errors of one or several idioms.
type ErrorList []*Error

func (list *ErrorList) Handler() ErrorHandler {
	return func(err *Error) {
		*list = append(*list, err)
	}
}

// Err returns the list as an error, or nil if it is empty.
func (list ErrorList) Err() error {
	if len(list) == 0 {
		return nil
	}
	return list
}

func (list ErrorList) Error() string {
	var msgs []string
	for _, err := range list {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}
