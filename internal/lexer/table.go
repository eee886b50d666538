package lexer

import "github.com/Zeph16/ziget/internal/token"

// charClass partitions the input alphabet the way spec.md §4.1
// describes: letter, digit, whitespace, newline, one class per
// punctuation character, plus other.
type charClass int

const (
	classLetter charClass = iota
	classDigit
	classWhitespace
	classNewline
	classPlus
	classMinus
	classStar
	classSlash
	classPercent
	classLt
	classGt
	classEquals
	classColon
	classSemicolon
	classComma
	classLParen
	classRParen
	classLBrace
	classRBrace
	classQuote
	classHash
	classBang
	classOther
)

func classify(b byte) charClass {
	switch {
	case b == '\n':
		return classNewline
	case b == ' ' || b == '\t' || b == '\r':
		return classWhitespace
	case b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_':
		return classLetter
	case b >= '0' && b <= '9':
		return classDigit
	case b == '+':
		return classPlus
	case b == '-':
		return classMinus
	case b == '*':
		return classStar
	case b == '/':
		return classSlash
	case b == '%':
		return classPercent
	case b == '<':
		return classLt
	case b == '>':
		return classGt
	case b == '=':
		return classEquals
	case b == ':':
		return classColon
	case b == ';':
		return classSemicolon
	case b == ',':
		return classComma
	case b == '(':
		return classLParen
	case b == ')':
		return classRParen
	case b == '{':
		return classLBrace
	case b == '}':
		return classRBrace
	case b == '"':
		return classQuote
	case b == '#':
		return classHash
	case b == '!':
		return classBang
	default:
		return classOther
	}
}

// state names the DFA's nodes. These are the only valid keys into
// Table.states.
type state string

const (
	stStart      state = "start"
	stIdent      state = "ident"
	stNumberInt  state = "number_int"
	stNumberDot  state = "number_dot"  // just consumed '.', tentative: needs a digit to become a valid fraction
	stNumberFrac state = "number_frac"
	stAfterMinus state = "after_minus" // consumed '-'; "->" extends it to Arrow
	stAfterLt    state = "after_lt"    // consumed '<'; "<=" extends it to Le
	stAfterGt    state = "after_gt"    // consumed '>'; ">=" extends it to Ge
	stAfterColon state = "after_colon" // consumed ':'; only ":=" is a valid token from here
	stInString   state = "in_string"
	stComment    state = "comment"
)

// cell is one (state, class) -> next-state entry. A cell carries no
// action of its own: whether to emit is decided by the target state's
// acceptKind, and a missing cell ends the scan.
type cell struct {
	next state
}

// stateDef bundles a state's outgoing transitions with the action to
// take when the table has no matching cell for the current class:
// accept, if acceptKind is set (classify-as and stop, without
// consuming the character that broke the match — spec.md §4.1
// "Emit"), or a lexical error otherwise.
type stateDef struct {
	transitions map[charClass]cell
	acceptKind  token.Kind // "" if this state is not itself accepting
}

// Table is the static DFA transition table driving the lexer. It is
// built once (see newTable) and never mutated; the shape — named
// states, a transitions map keyed by character class, a default/
// accept outcome per state — generalizes dfa.go's Dfa{InitialState,
// States} / DfaState{Transitions, DefaultTransition}, with an explicit
// accept classification added per spec.md §4.1's action set
// (Advance/Emit/EmitConsume/Error).
type Table struct {
	states map[state]stateDef
}

func (t *Table) step(s state, c charClass) (state, bool) {
	def, ok := t.states[s]
	if !ok {
		return "", false
	}
	cl, ok := def.transitions[c]
	if !ok {
		return "", false
	}
	return cl.next, true
}

func (t *Table) acceptKind(s state) (token.Kind, bool) {
	def, ok := t.states[s]
	if !ok || def.acceptKind == "" {
		return "", false
	}
	return def.acceptKind, true
}

// newTable constructs Ziget's static lexical transition table by
// hand, per spec.md §4.1.
func newTable() *Table {
	t := &Table{states: map[state]stateDef{}}

	t.states[stStart] = stateDef{
		transitions: map[charClass]cell{
			classLetter:    {next: stIdent},
			classDigit:     {next: stNumberInt},
			classMinus:     {next: stAfterMinus},
			classLt:        {next: stAfterLt},
			classGt:        {next: stAfterGt},
			classColon:     {next: stAfterColon},
			classQuote:     {next: stInString},
			classHash:      {next: stComment},
			classPlus:      {next: "accept_plus"},
			classStar:      {next: "accept_star"},
			classSlash:     {next: "accept_slash"},
			classPercent:   {next: "accept_percent"},
			classSemicolon: {next: "accept_semi"},
			classComma:     {next: "accept_comma"},
			classLParen:    {next: "accept_lparen"},
			classRParen:    {next: "accept_rparen"},
			classLBrace:    {next: "accept_lbrace"},
			classRBrace:    {next: "accept_rbrace"},
		},
	}

	// One-character operator/delimiter tokens: a single transition out
	// of start into a state whose sole job is to be accepting.
	oneChar := map[state]token.Kind{
		"accept_plus":    token.Plus,
		"accept_star":    token.Star,
		"accept_slash":   token.Slash,
		"accept_percent": token.Pct,
		"accept_semi":    token.Semi,
		"accept_comma":   token.Comma,
		"accept_lparen":  token.LParen,
		"accept_rparen":  token.RParen,
		"accept_lbrace":  token.LBrace,
		"accept_rbrace":  token.RBrace,
	}
	for s, kind := range oneChar {
		t.states[s] = stateDef{acceptKind: kind}
	}

	t.states[stIdent] = stateDef{
		acceptKind: token.Identifier, // rewritten to a keyword Kind post-accept; see Lexer.scanTable
		transitions: map[charClass]cell{
			classLetter: {next: stIdent},
			classDigit:  {next: stIdent},
		},
	}

	t.states[stNumberInt] = stateDef{
		acceptKind: token.Number,
		transitions: map[charClass]cell{
			classDigit: {next: stNumberInt},
			// '.' has no dedicated charClass of its own (it is not in
			// the punctuation set spec.md §4.1 enumerates) and is
			// recognized only in this one context, by checking the raw
			// byte rather than the class table — see Lexer.scanTable's
			// number special-case, which consults stNumberDot directly.
		},
	}

	t.states[stNumberDot] = stateDef{
		// not accepting: "digit+ '.' " with no following digit is not
		// a valid number, per spec.md §4.1's grammar. If no digit
		// follows, the scanner backs off to the last accepting state
		// (end of the integer part) and leaves the '.' for the next
		// token, which will fail to lex as anything and become an
		// Unknown token — "resynchronizes at the next valid character".
		transitions: map[charClass]cell{
			classDigit: {next: stNumberFrac},
		},
	}

	t.states[stNumberFrac] = stateDef{
		acceptKind: token.Number,
		transitions: map[charClass]cell{
			classDigit: {next: stNumberFrac},
		},
	}

	t.states[stAfterMinus] = stateDef{
		acceptKind: token.Minus,
		transitions: map[charClass]cell{
			classGt: {next: "accept_arrow"},
		},
	}
	t.states["accept_arrow"] = stateDef{acceptKind: token.Arrow}

	t.states[stAfterLt] = stateDef{
		acceptKind: token.Lt,
		transitions: map[charClass]cell{
			classEquals: {next: "accept_le"},
		},
	}
	t.states["accept_le"] = stateDef{acceptKind: token.Le}

	t.states[stAfterGt] = stateDef{
		acceptKind: token.Gt,
		transitions: map[charClass]cell{
			classEquals: {next: "accept_ge"},
		},
	}
	t.states["accept_ge"] = stateDef{acceptKind: token.Ge}

	t.states[stAfterColon] = stateDef{
		// ':' alone is not a Ziget token — only ":=" is. Not accepting.
		transitions: map[charClass]cell{
			classEquals: {next: "accept_assign"},
		},
	}
	t.states["accept_assign"] = stateDef{acceptKind: token.Assign}

	t.states[stInString] = stateDef{
		// Not accepting: a string is only complete once the closing
		// quote is seen (handled specially in Lexer.scanString, since every
		// other byte — including newline — continues the string and
		// the "transition" is "stay in stInString", which a sparse
		// per-class map can't express as "everything but one class").
	}

	t.states[stComment] = stateDef{
		// Not accepting and emits nothing either way; the lexer treats
		// a comment as a skip, not a token (see Lexer.skipTrivia).
	}

	return t
}
