package sql

import "strings"

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenString
	tokenIdent
	tokenSymbol
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) is(word string) bool {
	return t.kind == tokenWord && strings.EqualFold(t.text, word)
}

func (t token) isSymbol(sym byte) bool {
	return t.kind == tokenSymbol && t.text[0] == sym
}

func isWordByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		b >= 0x80
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// tokenize splits SQL text into words, literals, quoted identifiers and
// single-byte symbols. Comments and whitespace are dropped. An unterminated
// literal or comment runs to the end of the input.
func tokenize(input string) []token {
	tokens := make([]token, 0, 16)

	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case isSpace(c):
			i++
		case c == '-' && i+1 < len(input) && input[i+1] == '-':
			end := strings.IndexByte(input[i:], '\n')
			if end < 0 {
				i = len(input)
			} else {
				i += end + 1
			}
		case c == '/' && i+1 < len(input) && input[i+1] == '*':
			end := strings.Index(input[i+2:], "*/")
			if end < 0 {
				i = len(input)
			} else {
				i += end + 4
			}
		case c == '\'':
			end := scanQuoted(input, i, '\'')
			tokens = append(tokens, token{kind: tokenString, text: input[i:end], pos: i})
			i = end
		case c == '"' || c == '`':
			end := scanQuoted(input, i, c)
			tokens = append(tokens, token{kind: tokenIdent, text: input[i:end], pos: i})
			i = end
		case c == '[':
			end := strings.IndexByte(input[i:], ']')
			if end < 0 {
				end = len(input)
			} else {
				end += i + 1
			}
			tokens = append(tokens, token{kind: tokenIdent, text: input[i:end], pos: i})
			i = end
		case isWordByte(c):
			j := i
			for j < len(input) && isWordByte(input[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenWord, text: input[i:j], pos: i})
			i = j
		default:
			tokens = append(tokens, token{kind: tokenSymbol, text: input[i : i+1], pos: i})
			i++
		}
	}

	return tokens
}

// scanQuoted returns the offset just past the closing quote, treating a
// doubled quote as an escaped one.
func scanQuoted(input string, start int, quote byte) int {
	for i := start + 1; i < len(input); i++ {
		if input[i] != quote {
			continue
		}
		if i+1 < len(input) && input[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(input)
}

// words returns every keyword-shaped run of the raw text, upper-cased, with
// no regard for literals or comments.
func words(input string) []string {
	out := make([]string, 0, 16)
	for i := 0; i < len(input); {
		if !isWordByte(input[i]) {
			i++
			continue
		}
		j := i
		for j < len(input) && isWordByte(input[j]) {
			j++
		}
		out = append(out, strings.ToUpper(input[i:j]))
		i = j
	}
	return out
}
