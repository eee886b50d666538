// Package lexer tokenizes Ziget source text by driving the static DFA
// in table.go. See spec.md §4.2.
package lexer

import (
	"github.com/Zeph16/ziget/internal/diagnostics"
	"github.com/Zeph16/ziget/internal/token"
)

// Lexer walks source text one byte at a time, maintaining 1-indexed
// line/column position (spec.md §3 Position), and drives the static
// Table to recognize tokens.
type Lexer struct {
	src    string
	table  *Table
	offset int
	line   int
	col    int
}

func New(src string) *Lexer {
	return &Lexer{src: src, table: newTable(), line: 1, col: 1}
}

func (l *Lexer) atEnd() bool { return l.offset >= len(l.src) }

func (l *Lexer) current() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.offset]
}

// advance consumes the current byte, updating line/column the way
// go-mix/lexer/lexer.go's Advance does: newline resets column and
// bumps line, anything else just bumps column.
func (l *Lexer) advance() byte {
	b := l.current()
	l.offset++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func (l *Lexer) pos() token.Position { return token.Position{Line: l.line, Column: l.col} }

// Tokenize consumes the entire source and returns every token plus
// any diagnostics raised along the way. It never aborts: a lexical
// failure yields an Unknown token and a diagnostic, then resumes at
// the next byte (spec.md §4.2, §8 invariant 1). The returned token
// slice always ends with an EOF token.
func (l *Lexer) Tokenize() ([]token.Token, *diagnostics.Bag) {
	bag := &diagnostics.Bag{}
	var tokens []token.Token

	for {
		l.skipTrivia()
		startPos := l.pos()

		if l.atEnd() {
			tokens = append(tokens, token.New(token.EOF, "", startPos))
			return tokens, bag
		}

		tok, diag := l.next(startPos)
		if diag != nil {
			bag.Add(*diag)
		}
		tokens = append(tokens, tok)
	}
}

// skipTrivia consumes whitespace and "# ..." line comments, the way
// go-mix/lexer/lexer.go's IgnoreWhitespacesAndComments does. Comments
// emit no token (spec.md §4.1).
func (l *Lexer) skipTrivia() {
	for {
		switch classify(l.current()) {
		case classWhitespace, classNewline:
			l.advance()
		case classHash:
			l.advance() // consume '#'
			for !l.atEnd() && l.current() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// next recognizes exactly one token starting at the current position.
// Strings are scanned explicitly (a sparse per-class transition map
// cannot express "any byte but the closing quote"); everything else
// goes through the shared table-driven maximal-munch scan.
func (l *Lexer) next(startPos token.Position) (token.Token, *diagnostics.Diagnostic) {
	if classify(l.current()) == classQuote {
		return l.scanString(startPos)
	}
	return l.scanTable(startPos)
}

// scanString reads a "..."-delimited literal. No escape handling
// beyond the literal bytes is required for the core (spec.md §4.1).
// The Token's Lexeme holds the string's content, without the quotes.
func (l *Lexer) scanString(startPos token.Position) (token.Token, *diagnostics.Diagnostic) {
	l.advance() // consume opening '"'
	start := l.offset
	for {
		if l.atEnd() {
			lexeme := l.src[start:l.offset]
			d := diagnostics.Errorf(diagnostics.UnterminatedString, startPos,
				"unterminated string literal")
			return token.New(token.Unknown, lexeme, startPos), &d
		}
		if l.current() == '"' {
			lexeme := l.src[start:l.offset]
			l.advance() // consume closing '"'
			return token.New(token.String, lexeme, startPos), nil
		}
		l.advance()
	}
}

// scanTable runs the generic longest-match scan over Table, tracking
// the last accepting state the way tooling/lexer/lexer.go's nextToken
// does: advance while a transition exists, remember the most recent
// accepting offset, and — when the table has no further transition —
// back off to that last accept instead of consuming the character
// that broke the match (spec.md §4.1 "Emit": classify and reset,
// without consuming the triggering character).
func (l *Lexer) scanTable(startPos token.Position) (token.Token, *diagnostics.Diagnostic) {
	start := l.offset
	s := stStart

	lastAcceptOffset := -1
	lastAcceptLine, lastAcceptCol := l.line, l.col
	lastAcceptKind := token.Unknown

	for !l.atEnd() {
		b := l.current()
		var next state
		var ok bool

		// '.' inside a number's fractional position is the one place
		// the DFA needs a rule outside the charClass partition (see
		// table.go's note on stNumberInt): spec.md §4.1 gives '.' no
		// punctuation class of its own, so it is recognized here by
		// raw byte instead of classify(b).
		if s == stNumberInt && b == '.' {
			next, ok = stNumberDot, true
		} else {
			next, ok = l.table.step(s, classify(b))
		}

		if !ok {
			break
		}
		l.advance()
		s = next

		// Remember position alongside offset (not just offset) so
		// that backing off to the last accept below also rewinds
		// line/column tracking correctly — matching
		// tooling/lexer/lexer.go's lastAcceptLine/lastAcceptColumn.
		if kind, accepting := l.table.acceptKind(s); accepting {
			lastAcceptOffset = l.offset
			lastAcceptLine, lastAcceptCol = l.line, l.col
			lastAcceptKind = kind
		}
	}

	if lastAcceptOffset < 0 {
		// No accepting state reached at all: one unrecognized byte.
		// Consume it and resynchronize at the next byte, per spec.md
		// §4.2.
		l.offset = start
		l.line, l.col = startPos.Line, startPos.Column
		l.advance()
		lexeme := l.src[start:l.offset]
		d := diagnostics.Errorf(diagnostics.UnknownCharacter, startPos,
			"unexpected character %q", lexeme)
		return token.New(token.Unknown, lexeme, startPos), &d
	}

	l.offset = lastAcceptOffset
	l.line, l.col = lastAcceptLine, lastAcceptCol
	lexeme := l.src[start:l.offset]
	kind := lastAcceptKind
	if kind == token.Identifier {
		kind = token.LookupIdentifier(lexeme)
	}
	return token.New(kind, lexeme, startPos), nil
}
