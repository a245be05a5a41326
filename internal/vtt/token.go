package vtt

import (
	"iter"
	"slices"
)

type TokenKind int

const (
	TokenData TokenKind = iota
	TokenStart
	TokenEnd
	TokenTimestamp
	TokenLineEnd
)

func (k TokenKind) String() string {
	switch k {
	case TokenData:
		return "data"
	case TokenStart:
		return "start"
	case TokenEnd:
		return "end"
	case TokenTimestamp:
		return "timestamp"
	case TokenLineEnd:
		return "line-end"
	default:
		return "unknown"
	}
}

// single token; which fields are set depends on Kind
type Token struct {
	Kind        TokenKind
	Text        string
	Tag         string
	Classes     []string
	Annotation  string
	TimestampMs int64
}

// collects tokens for the line being tokenized
type tokenBuffer struct {
	tokens []Token
}

func (b *tokenBuffer) OnData(text string) {
	b.tokens = append(b.tokens, Token{Kind: TokenData, Text: text})
}

func (b *tokenBuffer) OnStart(tag string, classes []string, annotation string) {
	b.tokens = append(b.tokens, Token{
		Kind:       TokenStart,
		Tag:        tag,
		Classes:    classes,
		Annotation: annotation,
	})
}

func (b *tokenBuffer) OnEnd(tag string) {
	b.tokens = append(b.tokens, Token{Kind: TokenEnd, Tag: tag})
}

func (b *tokenBuffer) OnTimestamp(ms int64) {
	b.tokens = append(b.tokens, Token{Kind: TokenTimestamp, TimestampMs: ms})
}

func (b *tokenBuffer) OnLineEnd() {
	b.tokens = append(b.tokens, Token{Kind: TokenLineEnd})
}

// Tokens lazily tokenizes lines, one line per pull. Every iteration starts
// from a fresh tokenizer, so the sequence can be ranged over repeatedly.
func Tokens(lines iter.Seq[string], opts ...TokenizerOption) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		buf := &tokenBuffer{}
		tok := NewTokenizer(buf, opts...)
		for line := range lines {
			buf.tokens = buf.tokens[:0]
			tok.Tokenize(line)
			for _, token := range buf.tokens {
				if !yield(token) {
					return
				}
			}
		}
	}
}

// tokens of the given lines
func TokenizeLines(lines []string, opts ...TokenizerOption) []Token {
	return slices.Collect(Tokens(slices.Values(lines), opts...))
}
