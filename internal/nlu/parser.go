package nlu

import (
	"strings"
	"unicode"
)

// Token is one word of the input with the surface cues the extractor
// needs: position, capitalization and digit content.
type Token struct {
	Text  string // original surface form
	Lower string
	Index int  // token position, 0-based
	Title bool // starts with an uppercase letter
	Num   bool // wholly numeric
}

// Parser is the language-toolkit collaborator. It tokenizes text and
// flags entity cues; it is side-effect free and assumed always available.
type Parser interface {
	Parse(text string) []Token
}

// SimpleParser is the default Parser: a lexical tokenizer that splits
// on non-word runes and annotates capitalization and numeric tokens.
type SimpleParser struct{}

// Parse splits text into annotated tokens.
func (SimpleParser) Parse(text string) []Token {
	var tokens []Token
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		w := cur.String()
		cur.Reset()
		r := []rune(w)
		num := true
		for _, c := range r {
			if !unicode.IsDigit(c) && c != '.' {
				num = false
				break
			}
		}
		tokens = append(tokens, Token{
			Text:  w,
			Lower: strings.ToLower(w),
			Index: len(tokens),
			Title: unicode.IsUpper(r[0]),
			Num:   num,
		})
	}

	for _, c := range text {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' || c == '.' || c == '$':
			// Keep $ and . attached so "$45.50" stays one token.
			cur.WriteRune(c)
		default:
			flush()
		}
	}
	flush()

	// Trim trailing sentence periods left attached by the rune filter.
	for i := range tokens {
		tokens[i].Text = strings.TrimRight(tokens[i].Text, ".")
		tokens[i].Lower = strings.TrimRight(tokens[i].Lower, ".")
	}
	return tokens
}

// properSpan returns the surface text of the run of Title-case tokens
// starting at i, and the index past the run. Single-token spans are the
// common case ("Walmart"); multiword spans cover "Home Depot".
func properSpan(tokens []Token, i int) (string, int) {
	j := i
	var words []string
	for j < len(tokens) && tokens[j].Title && !tokens[j].Num {
		words = append(words, tokens[j].Text)
		j++
	}
	return strings.Join(words, " "), j
}
