package sql

import "strings"

// Reason identifies which rule rejected a statement.
type Reason string

const (
	ReasonNotSelect          Reason = "not-a-select"
	ReasonForbiddenKeyword   Reason = "forbidden-keyword"
	ReasonMultipleStatements Reason = "multiple-statements"
)

// Verdict is the outcome of validating one statement.
type Verdict struct {
	Allowed bool
	Reason  Reason
	// Keyword is set for ReasonForbiddenKeyword.
	Keyword string
}

// Code returns the stable reason code, e.g. "forbidden-keyword:DROP".
// It is empty for an allowed statement.
func (v Verdict) Code() string {
	if v.Allowed {
		return ""
	}
	if v.Keyword != "" {
		return string(v.Reason) + ":" + v.Keyword
	}
	return string(v.Reason)
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func reject(reason Reason) Verdict {
	return Verdict{Reason: reason}
}

// Statement is the prepared form of the text handed to each rule.
type Statement struct {
	Text   string
	tokens []token
	words  []string
}

func newStatement(text string) *Statement {
	return &Statement{
		Text:   text,
		tokens: tokenize(text),
		words:  words(text),
	}
}

// Rule is a single check of a Policy.
type Rule interface {
	Check(stmt *Statement) Verdict
}

// Policy applies its rules in order and reports the first rejection.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// DefaultForbiddenKeywords are the statement keywords that write to or
// administer a SQLite store.
var DefaultForbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE",
	"REPLACE", "ATTACH", "DETACH", "PRAGMA", "VACUUM", "REINDEX",
}

// ReadOnly is the gateway policy: a leading SELECT (or a WITH resolving to
// one), no forbidden keyword anywhere in the text, and a single statement.
// Rules run in that order and the first failure wins, so "DROP TABLE t" is
// reported as not-a-select rather than forbidden-keyword:DROP.
func ReadOnly() *Policy {
	return NewPolicy(
		LeadingSelect{},
		NewForbiddenKeywords(DefaultForbiddenKeywords...),
		SingleStatement{},
	)
}

func (p *Policy) Validate(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return reject(ReasonNotSelect)
	}

	stmt := newStatement(text)
	for _, rule := range p.rules {
		if v := rule.Check(stmt); !v.Allowed {
			return v
		}
	}

	return allow()
}

// LeadingSelect requires the first keyword to be SELECT, or WITH followed by
// a list of common table expressions and then a top-level SELECT.
type LeadingSelect struct{}

func (LeadingSelect) Check(stmt *Statement) Verdict {
	tokens := stmt.tokens
	if len(tokens) == 0 {
		return reject(ReasonNotSelect)
	}

	switch {
	case tokens[0].is("SELECT"):
		return allow()
	case tokens[0].is("WITH") && withResolvesToSelect(tokens):
		return allow()
	}

	return reject(ReasonNotSelect)
}

func withResolvesToSelect(tokens []token) bool {
	n := len(tokens)
	i := 1
	if i < n && tokens[i].is("RECURSIVE") {
		i++
	}

	for {
		if i >= n || (tokens[i].kind != tokenWord && tokens[i].kind != tokenIdent) {
			return false
		}
		i++

		// optional column list
		if i < n && tokens[i].isSymbol('(') {
			if i = skipGroup(tokens, i); i < 0 {
				return false
			}
		}

		if i >= n || !tokens[i].is("AS") {
			return false
		}
		i++
		if i < n && tokens[i].is("NOT") {
			i++
		}
		if i < n && tokens[i].is("MATERIALIZED") {
			i++
		}

		if i >= n || !tokens[i].isSymbol('(') {
			return false
		}
		if i = skipGroup(tokens, i); i < 0 {
			return false
		}

		if i < n && tokens[i].isSymbol(',') {
			i++
			continue
		}
		break
	}

	return i < n && tokens[i].is("SELECT")
}

// skipGroup returns the index just past the parenthesis that closes the one
// at start, or -1 when it is never closed.
func skipGroup(tokens []token, start int) int {
	depth := 0
	for i := start; i < len(tokens); i++ {
		switch {
		case tokens[i].isSymbol('('):
			depth++
		case tokens[i].isSymbol(')'):
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// ForbiddenKeywords rejects any whole-word occurrence of a keyword in the
// raw text, including inside string literals and comments.
type ForbiddenKeywords struct {
	set map[string]struct{}
}

func NewForbiddenKeywords(keywords ...string) ForbiddenKeywords {
	set := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		set[strings.ToUpper(k)] = struct{}{}
	}
	return ForbiddenKeywords{set: set}
}

func (f ForbiddenKeywords) Check(stmt *Statement) Verdict {
	for _, w := range stmt.words {
		if _, ok := f.set[w]; ok {
			return Verdict{Reason: ReasonForbiddenKeyword, Keyword: w}
		}
	}
	return allow()
}

// SingleStatement rejects a terminator followed by anything but whitespace.
// Semicolons inside literals, identifiers and comments are not terminators.
type SingleStatement struct{}

func (SingleStatement) Check(stmt *Statement) Verdict {
	for _, t := range stmt.tokens {
		if !t.isSymbol(';') {
			continue
		}
		if strings.TrimSpace(stmt.Text[t.pos+1:]) != "" {
			return reject(ReasonMultipleStatements)
		}
		break
	}
	return allow()
}
