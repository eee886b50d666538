// Package diagnostics models the compiler's error and warning records.
// Every stage of the pipeline accumulates Diagnostics rather than
// aborting on the first problem (spec.md §7).
package diagnostics

import (
	"fmt"

	"github.com/Zeph16/ziget/internal/token"
)

// Severity distinguishes errors (block advancing to the next pipeline
// stage) from warnings (reported but never change the exit code).
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind is the closed set of diagnostic kinds from spec.md §7. Each
// carries a short stable code (SPEC_FULL.md §C.4) and an fmt template.
type Kind string

const (
	// Lexical
	UnknownCharacter  Kind = "UnknownCharacter"
	UnterminatedString Kind = "UnterminatedString"

	// Syntactic
	UnexpectedToken         Kind = "UnexpectedToken"
	ExpectedToken           Kind = "ExpectedToken"
	MissingMain             Kind = "MissingMain"
	StatementOutsideProcedure Kind = "StatementOutsideProcedure"

	// Semantic errors
	UnknownIdentifier        Kind = "UnknownIdentifier"
	DuplicateDeclaration     Kind = "DuplicateDeclaration"
	TypeMismatch             Kind = "TypeMismatch"
	ArgumentCountMismatch    Kind = "ArgumentCountMismatch"
	ArgumentTypeMismatch     Kind = "ArgumentTypeMismatch"
	OutOfLoopControl         Kind = "OutOfLoopControl"
	ReturnTypeMismatch       Kind = "ReturnTypeMismatch"
	CallOfVoidInValuePosition Kind = "CallOfVoidInValuePosition"
	InvalidPrintFormat       Kind = "InvalidPrintFormat"

	// Semantic warnings
	UnusedVariable  Kind = "UnusedVariable"
	UnusedProcedure Kind = "UnusedProcedure"
	Unreachable     Kind = "Unreachable"
)

// codes gives each Kind a short stable identifier for the one-line
// diagnostic format, mirroring funvibe/funxy's ErrorCode scheme
// ("L001", "P003", "A006", ...).
var codes = map[Kind]string{
	UnknownCharacter:          "L001",
	UnterminatedString:        "L002",
	UnexpectedToken:           "P001",
	ExpectedToken:             "P002",
	MissingMain:               "P003",
	StatementOutsideProcedure: "P004",
	UnknownIdentifier:         "A001",
	DuplicateDeclaration:      "A002",
	TypeMismatch:              "A003",
	ArgumentCountMismatch:     "A004",
	ArgumentTypeMismatch:      "A005",
	OutOfLoopControl:          "A006",
	ReturnTypeMismatch:        "A007",
	CallOfVoidInValuePosition: "A008",
	InvalidPrintFormat:        "A009",
	UnusedVariable:            "W001",
	UnusedProcedure:           "W002",
	Unreachable:               "W003",
}

// Code returns the short stable code for kind, or "?" if kind is not
// one of the closed set above (should never happen).
func (k Kind) Code() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return "?"
}

// Diagnostic is a single reported problem: {severity, kind, message,
// position} per spec.md §7.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Pos      token.Position
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s [%s]: %s", d.Pos, d.Severity, d.Kind.Code(), d.Message)
}

func New(sev Severity, kind Kind, pos token.Position, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	}
}

func Errorf(kind Kind, pos token.Position, format string, args ...interface{}) Diagnostic {
	return New(Error, kind, pos, format, args...)
}

func Warnf(kind Kind, pos token.Position, format string, args ...interface{}) Diagnostic {
	return New(Warning, kind, pos, format, args...)
}

// Bag accumulates diagnostics across a pipeline stage. It never aborts
// collection — every stage runs to completion and reports everything
// it found, per spec.md §7.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Bag) Errorf(kind Kind, pos token.Position, format string, args ...interface{}) {
	b.Add(Errorf(kind, pos, format, args...))
}

func (b *Bag) Warnf(kind Kind, pos token.Position, format string, args ...interface{}) {
	b.Add(Warnf(kind, pos, format, args...))
}

// HasErrors reports whether any accumulated diagnostic is an Error.
// Warnings alone never block the pipeline from advancing.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (b *Bag) All() []Diagnostic {
	return b.items
}

// Extend appends another Bag's diagnostics onto b, preserving order.
func (b *Bag) Extend(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}
