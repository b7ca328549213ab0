package lang

import (
	"strings"

	vperrors "github.com/vidpipe/vidpipe/errors"
)

// lexer is a hand-rolled single-pass scanner over the source string.
type lexer struct {
	src    string
	pos    int
	line   int
	column int
}

// Lex converts source text into an ordered token slice terminated by an
// EOF token, or fails with a *errors.LexError on the first malformed
// construct encountered.
func Lex(source string) ([]Token, error) {
	l := &lexer{src: source, pos: 0, line: 1, column: 1}
	var tokens []Token

	for {
		l.skipWhitespaceAndComments()
		if l.atEnd() {
			break
		}

		startLine, startCol := l.line, l.column
		c := l.peek()

		switch {
		case isDigit(c):
			tok, err := l.readNumber()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '"' || c == '\'':
			tok, err := l.readString()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '-' && isAlpha(l.peekAt(1)):
			// An identifier may start with '-'; otherwise '-' is never an
			// operator on its own in this grammar, only as part of "->".
			tokens = append(tokens, l.readIdentifier())
		case isIdentStart(c):
			tokens = append(tokens, l.readIdentifier())
		default:
			tok, err := l.readOperator()
			if err != nil {
				return nil, err
			}
			if tok.Kind == EOF && tok.Text == "" {
				return nil, vperrors.NewLexError(startLine, startCol, "unexpected character '"+string(c)+"'")
			}
			tokens = append(tokens, tok)
		}
	}

	tokens = append(tokens, Token{Kind: EOF, Line: l.line, Column: l.column})
	return tokens, nil
}

func (l *lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) peekAt(offset int) byte {
	p := l.pos + offset
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *lexer) advance() byte {
	if l.atEnd() {
		return 0
	}
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *lexer) skipWhitespaceAndComments() {
	for {
		for !l.atEnd() {
			c := l.peek()
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
				l.advance()
				continue
			}
			break
		}
		if l.peek() == '#' {
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentStart(c byte) bool { return isAlpha(c) || c == '_' }

func isIdentCont(c byte) bool { return isAlpha(c) || isDigit(c) || c == '-' || c == '_' }

func (l *lexer) readNumber() (Token, error) {
	startLine, startCol := l.line, l.column
	var sb strings.Builder
	dots := 0
	for !l.atEnd() && (isDigit(l.peek()) || l.peek() == '.') {
		if l.peek() == '.' {
			dots++
		}
		sb.WriteByte(l.advance())
	}
	if dots > 1 {
		return Token{}, vperrors.NewLexError(startLine, startCol, "malformed number: more than one decimal point")
	}
	return Token{Kind: Number, Text: sb.String(), Line: startLine, Column: startCol}, nil
}

func (l *lexer) readString() (Token, error) {
	startLine, startCol := l.line, l.column
	quote := l.advance()
	var sb strings.Builder
	for {
		if l.atEnd() {
			return Token{}, vperrors.NewLexError(startLine, startCol, "unterminated string")
		}
		c := l.peek()
		if c == quote {
			l.advance()
			break
		}
		l.advance()
		if c == '\\' && !l.atEnd() {
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(c)
	}
	return Token{Kind: String, Text: sb.String(), Line: startLine, Column: startCol}, nil
}

func (l *lexer) readIdentifier() Token {
	startLine, startCol := l.line, l.column
	var sb strings.Builder
	for !l.atEnd() && isIdentCont(l.peek()) {
		sb.WriteByte(l.advance())
	}
	text := sb.String()
	switch text {
	case "with":
		return Token{Kind: KeywordWith, Text: text, Line: startLine, Column: startCol}
	case "pipeline":
		return Token{Kind: KeywordPipeline, Text: text, Line: startLine, Column: startCol}
	default:
		// "true"/"false" are not reserved words (only pipeline/with are,
		// per spec.md §4.L): they lex as ordinary identifiers and
		// parseLiteral recognizes them as the boolean literal form.
		return Token{Kind: Identifier, Text: text, Line: startLine, Column: startCol}
	}
}

// readOperator recognizes two-character operators before their single-
// character prefixes, per spec.md §4.L. "&>" is accepted as a lexical alias
// and folded into Pipe, its deprecated alias per spec.md §9. "=>" is not an
// operator: it lexes as Equals followed by an unrecognized '>'. For an
// unrecognized character it returns an empty EOF token, which Lex reports
// as a LexError.
func (l *lexer) readOperator() (Token, error) {
	startLine, startCol := l.line, l.column
	two := l.src[l.pos:min(l.pos+2, len(l.src))]

	switch two {
	case "->":
		l.advance()
		l.advance()
		return Token{Kind: Arrow, Text: "->", Line: startLine, Column: startCol}, nil
	case "~>":
		l.advance()
		l.advance()
		return Token{Kind: TildeArrow, Text: "~>", Line: startLine, Column: startCol}, nil
	case "&>":
		l.advance()
		l.advance()
		return Token{Kind: Pipe, Text: "&>", Line: startLine, Column: startCol}, nil
	}

	c := l.peek()
	switch c {
	case '|':
		l.advance()
		return Token{Kind: Pipe, Text: "|", Line: startLine, Column: startCol}, nil
	case '(':
		l.advance()
		return Token{Kind: LParen, Text: "(", Line: startLine, Column: startCol}, nil
	case ')':
		l.advance()
		return Token{Kind: RParen, Text: ")", Line: startLine, Column: startCol}, nil
	case '[':
		l.advance()
		return Token{Kind: LBracket, Text: "[", Line: startLine, Column: startCol}, nil
	case ']':
		l.advance()
		return Token{Kind: RBracket, Text: "]", Line: startLine, Column: startCol}, nil
	case ',':
		l.advance()
		return Token{Kind: Comma, Text: ",", Line: startLine, Column: startCol}, nil
	case ':':
		l.advance()
		return Token{Kind: Colon, Text: ":", Line: startLine, Column: startCol}, nil
	case '@':
		l.advance()
		return Token{Kind: At, Text: "@", Line: startLine, Column: startCol}, nil
	case '=':
		l.advance()
		return Token{Kind: Equals, Text: "=", Line: startLine, Column: startCol}, nil
	}

	return Token{Kind: EOF}, nil
}
