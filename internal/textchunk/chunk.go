// Package textchunk prepares narration text for text-to-speech providers.
package textchunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const DefaultMaxChunkLength = 300

// sentenceEnders terminate a sentence. A run of them ("?!", "...") is one terminator.
const sentenceEnders = ".!?…。！？"

// Split cuts text into chunks of at most maxChunkLength runes that respect
// sentence boundaries. Concatenating the chunks yields text exactly: no
// whitespace is trimmed or inserted. A sentence longer than the limit is
// cut at whitespace, and a single word longer than the limit is cut
// between runes, never inside a run of sentence-ending punctuation. The
// only chunk that may exceed the limit is one that begins with a
// punctuation run longer than the limit.
func Split(text string, maxChunkLength int) []string {
	if text == "" {
		return nil
	}
	if maxChunkLength <= 0 {
		maxChunkLength = DefaultMaxChunkLength
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range sentences(text) {
		n := utf8.RuneCountInString(sentence)
		if currentLen+n <= maxChunkLength {
			current.WriteString(sentence)
			currentLen += n
			continue
		}

		flush()
		if n <= maxChunkLength {
			current.WriteString(sentence)
			currentLen = n
			continue
		}

		for _, piece := range splitLong(sentence, maxChunkLength) {
			pn := utf8.RuneCountInString(piece)
			if currentLen+pn > maxChunkLength {
				flush()
			}
			current.WriteString(piece)
			currentLen += pn
		}
	}
	flush()

	return chunks
}

// sentences splits text after each terminator run and the whitespace that
// follows it. The pieces concatenate back to text.
func sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); {
		if !isSentenceEnder(runes[i]) {
			i++
			continue
		}

		for i < len(runes) && (isSentenceEnder(runes[i]) || isClosingMark(runes[i])) {
			i++
		}
		if i < len(runes) && !unicode.IsSpace(runes[i]) {
			// "3.14" or "e.g.x": not a boundary.
			continue
		}
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}

		out = append(out, string(runes[start:i]))
		start = i
	}

	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}

	return out
}

// splitLong breaks an over-long sentence into word pieces (each word keeps
// its trailing whitespace), hard-cutting words that alone exceed limit.
func splitLong(sentence string, limit int) []string {
	var pieces []string
	runes := []rune(sentence)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			i++
		}
		pieces = append(pieces, hardCut(runes[start:i+1], limit)...)
		start = i + 1
	}
	if start < len(runes) {
		pieces = append(pieces, hardCut(runes[start:], limit)...)
	}

	return pieces
}

func hardCut(word []rune, limit int) []string {
	if len(word) <= limit {
		return []string{string(word)}
	}

	var out []string
	for len(word) > limit {
		cut := limit
		// Cut before a terminator run that straddles the limit.
		for cut > 0 && isSentenceEnder(word[cut]) && isSentenceEnder(word[cut-1]) {
			cut--
		}
		if cut == 0 {
			// The run starts the word: keep it whole.
			cut = limit
			for cut < len(word) && isSentenceEnder(word[cut]) {
				cut++
			}
		}
		out = append(out, string(word[:cut]))
		word = word[cut:]
	}
	if len(word) > 0 {
		out = append(out, string(word))
	}

	return out
}

func isSentenceEnder(r rune) bool {
	return strings.ContainsRune(sentenceEnders, r)
}

// isClosingMark covers quotes and brackets that close a sentence: `He said "Stop!" Then...`.
func isClosingMark(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '”', '’':
		return true
	}
	return false
}
