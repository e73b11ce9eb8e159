package textchunk

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type Language string

const (
	LanguageVietnamese Language = "vi"
	LanguageOther      Language = "other"
)

// vietnameseMarks are the combining marks of the Vietnamese alphabet after
// NFD decomposition: grave, acute, circumflex, tilde, breve, hook above,
// horn and dot below.
var vietnameseMarks = map[rune]struct{}{
	'\u0300': {},
	'\u0301': {},
	'\u0302': {},
	'\u0303': {},
	'\u0306': {},
	'\u0309': {},
	'\u031b': {},
	'\u0323': {},
}

// DetectLanguage reports Vietnamese when text contains đ/Đ or a vowel
// carrying one of the Vietnamese diacritics. It is a presence heuristic: a
// French "café" also reads as Vietnamese.
func DetectLanguage(text string) Language {
	decomposed := norm.NFD.String(text)

	afterVowel := false
	for _, r := range decomposed {
		switch {
		case r == 'đ' || r == 'Đ':
			return LanguageVietnamese
		case unicode.Is(unicode.Mn, r):
			if _, ok := vietnameseMarks[r]; ok && afterVowel {
				return LanguageVietnamese
			}
		default:
			afterVowel = strings.ContainsRune("aeiouyAEIOUY", r)
		}
	}

	return LanguageOther
}
