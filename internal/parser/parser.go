package parser

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/neevsh/gosh/internal/lexer"
)

// ErrMissingRedirectTarget is returned when a redirection operator is
// not followed by a target filename before the line runs out.
var ErrMissingRedirectTarget = errors.New("missing target for redirection")

// ErrUnclosedQuote is returned when a line ends with a single or
// double quote still open.
var ErrUnclosedQuote = errors.New("unclosed quote")

// Parse tokenizes and folds line into the head Command of a pipeline.
// A pipe segment becomes a Redirect on the preceding stage whose ToPipe
// points at the recursively parsed downstream Command.
func Parse(line string) (*Command, error) {
	tokens, err := lexer.Lex(line)
	if err != nil {
		return nil, err
	}

	cmd, _, err := parseStage(tokens, 0)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// parseStage parses one pipeline stage starting at tokens[pos], and
// returns the position immediately after everything it consumed
// (including a downstream pipe chain, since that consumes the rest of
// the token stream).
func parseStage(tokens []lexer.Token, pos int) (*Command, int, error) {
	p := &stageParser{tokens: tokens, pos: pos, quote: lexer.QuoteNone}

	for {
		tok := p.tokens[p.pos]

		switch tok.Kind {
		case lexer.SingleQuote:
			p.toggleSingleQuote()
			p.pos++

		case lexer.DoubleQuote:
			p.toggleDoubleQuote()
			p.pos++

		case lexer.EscapeSequence:
			escaped := rune(tok.Lexeme[len(tok.Lexeme)-1])
			p.buf.WriteString(lexer.Resolve(p.quote, escaped))
			p.pos++

		case lexer.Whitespace:
			p.flushArg()
			p.pos++

		case lexer.String:
			if p.quote == lexer.QuoteNone && tok.Lexeme == "|" {
				p.pos++
				downstream, next, err := parseStage(tokens, p.pos)
				if err != nil {
					return nil, next, err
				}
				p.redirects = append(p.redirects, Redirect{
					From:   Stdout,
					Mode:   Overwrite,
					ToPipe: downstream,
				})
				return p.command(), next, nil
			}

			if p.quote == lexer.QuoteNone && strings.ContainsAny(tok.Lexeme, ">") {
				if err := p.handleRedirect(); err != nil {
					return nil, p.pos, err
				}
				continue
			}

			p.buf.WriteString(tok.Lexeme)
			p.pos++

		case lexer.EOF:
			if p.quote != lexer.QuoteNone {
				return nil, p.pos, ErrUnclosedQuote
			}
			p.flushArg()
			return p.command(), p.pos, nil
		}
	}
}

// stageParser holds the mutable state for folding tokens into a single
// Command stage: the in-progress argument buffer, the open-quote state
// (depth never exceeds 1), and the args/redirects accumulated so far.
type stageParser struct {
	tokens    []lexer.Token
	pos       int
	buf       strings.Builder
	quote     lexer.Quote
	args      []string
	redirects []Redirect
}

func (p *stageParser) toggleSingleQuote() {
	switch p.quote {
	case lexer.QuoteNone:
		p.quote = lexer.QuoteSingle
	case lexer.QuoteSingle:
		p.quote = lexer.QuoteNone
	case lexer.QuoteDouble:
		p.buf.WriteByte('\'')
	}
}

func (p *stageParser) toggleDoubleQuote() {
	switch p.quote {
	case lexer.QuoteNone:
		p.quote = lexer.QuoteDouble
	case lexer.QuoteDouble:
		p.quote = lexer.QuoteNone
	case lexer.QuoteSingle:
		p.buf.WriteByte('"')
	}
}

func (p *stageParser) flushArg() {
	if p.quote != lexer.QuoteNone {
		p.buf.WriteString(p.tokens[p.pos].Lexeme)
		return
	}

	if p.buf.Len() == 0 {
		return
	}
	p.args = append(p.args, p.buf.String())
	p.buf.Reset()
}

func (p *stageParser) command() *Command {
	return &Command{Args: p.args, Redirects: p.redirects}
}

// handleRedirect parses a redirection operator sitting at the front of
// the current token's lexeme (the lexer has no special knowledge of
// '>', so it arrives embedded in an ordinary String token), then
// collects the target filename from whatever remains of that lexeme
// plus however many subsequent tokens it takes to reach unquoted
// whitespace or EOF. Whatever was already sitting in the argument
// buffer immediately before the operator is prepended to the target,
// since an unseparated prefix like the 'cd' in "echo 'cd'>f" belongs to
// the filename, not to a preceding argument.
func (p *stageParser) handleRedirect() error {
	lexeme := p.tokens[p.pos].Lexeme

	from := Stdout
	rest := lexeme
	switch rest[0] {
	case '1':
		from = Stdout
		rest = rest[1:]
	case '2':
		from = Stderr
		rest = rest[1:]
	}

	if len(rest) == 0 || rest[0] != '>' {
		return errors.Errorf("malformed redirection operator %q", lexeme)
	}
	rest = rest[1:]

	mode := Overwrite
	if len(rest) > 0 && rest[0] == '>' {
		mode = Append
		rest = rest[1:]
	}

	prefix := p.buf.String() + rest
	p.buf.Reset()

	p.pos++
	target, newPos, err := collectTarget(p.tokens, p.pos, prefix)
	if err != nil {
		return err
	}
	p.pos = newPos

	p.redirects = append(p.redirects, Redirect{From: from, Mode: mode, ToFile: target})
	return nil
}

// collectTarget gathers a redirection's target filename starting from
// a literal prefix (leftover characters of the operator's own token,
// plus whatever argument buffer preceded it) and then walking forward
// through quotes/escapes/strings exactly like ordinary argument
// collection. Leading unquoted whitespace is skipped, as in the
// original's next_string, so a space-separated target like
// "echo hi > f" still resolves to "f" rather than an empty filename;
// once the target buffer holds anything, the next unquoted whitespace
// or EOF ends it. Reaching EOF while the target is still empty is
// ErrMissingRedirectTarget: a redirection always needs a target.
func collectTarget(tokens []lexer.Token, pos int, prefix string) (string, int, error) {
	var buf strings.Builder
	buf.WriteString(prefix)
	quote := lexer.QuoteNone

	for {
		tok := tokens[pos]

		switch tok.Kind {
		case lexer.SingleQuote:
			switch quote {
			case lexer.QuoteNone:
				quote = lexer.QuoteSingle
			case lexer.QuoteSingle:
				quote = lexer.QuoteNone
			case lexer.QuoteDouble:
				buf.WriteByte('\'')
			}
			pos++

		case lexer.DoubleQuote:
			switch quote {
			case lexer.QuoteNone:
				quote = lexer.QuoteDouble
			case lexer.QuoteDouble:
				quote = lexer.QuoteNone
			case lexer.QuoteSingle:
				buf.WriteByte('"')
			}
			pos++

		case lexer.EscapeSequence:
			escaped := rune(tok.Lexeme[len(tok.Lexeme)-1])
			buf.WriteString(lexer.Resolve(quote, escaped))
			pos++

		case lexer.String:
			buf.WriteString(tok.Lexeme)
			pos++

		case lexer.Whitespace:
			if quote != lexer.QuoteNone {
				buf.WriteString(tok.Lexeme)
				pos++
				continue
			}
			if buf.Len() == 0 {
				pos++
				continue
			}
			return buf.String(), pos, nil

		case lexer.EOF:
			if quote != lexer.QuoteNone {
				return "", pos, ErrUnclosedQuote
			}
			if buf.Len() == 0 {
				return "", pos, errors.Wrap(ErrMissingRedirectTarget, "reached end of input")
			}
			return buf.String(), pos, nil
		}
	}
}
