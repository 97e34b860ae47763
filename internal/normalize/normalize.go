package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Tokens case-folds text and splits it into words. Fields are split on
// whitespace and trimmed of leading and trailing punctuation; fields that are
// punctuation only are dropped. Order and duplicates are preserved.
func Tokens(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return []string{}
	}
	folder := cases.Fold()
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		_, core, _ := SplitEdges(f)
		if core == "" {
			continue
		}
		out = append(out, folder.String(core))
	}
	return out
}

// Text returns the canonical form of text: its tokens joined by single spaces.
func Text(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Fold returns the case-folded form of a single word.
func Fold(word string) string {
	return cases.Fold().String(word)
}

// SplitEdges cuts a whitespace-free field into leading punctuation, the word
// core and trailing punctuation. A field without letters or digits returns an
// empty core and the whole field as lead.
func SplitEdges(field string) (lead, core, trail string) {
	start := strings.IndexFunc(field, isWordRune)
	if start < 0 {
		return field, "", ""
	}
	end := strings.LastIndexFunc(field, isWordRune)
	_, size := utf8.DecodeRuneInString(field[end:])
	end += size
	return field[:start], field[start:end], field[end:]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.M, r)
}
