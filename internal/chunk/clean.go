package chunk

import (
	"regexp"
	"strings"
)

// Extraction artifacts fixed by Clean. Compiled once; Clean is on the
// ingest hot path.
var (
	hyphenBreakRe   = regexp.MustCompile(`-\s*\n\s*`)
	paragraphGapRe  = regexp.MustCompile(`\n\s*\n`)
	multiSpaceRe    = regexp.MustCompile(`[ \t]{2,}`)
	letterDigitRe   = regexp.MustCompile(`([A-Za-z])([0-9])`)
	digitLetterRe   = regexp.MustCompile(`([0-9])([A-Za-z])`)
	paragraphMarker = "\x00"
)

// Clean normalizes raw extracted text before chunking:
//
//  1. joins hyphenated line breaks ("pre-\ncipitating" → "precipitating")
//  2. collapses newlines within a paragraph to spaces, keeping blank-line
//     paragraph boundaries intact
//  3. collapses runs of spaces
//  4. inserts a missing space at letter↔digit boundaries, a common
//     PDF-extraction artifact
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	text = hyphenBreakRe.ReplaceAllString(text, "")

	// Protect paragraph boundaries, then flatten intra-paragraph newlines.
	text = paragraphGapRe.ReplaceAllString(text, paragraphMarker)
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, paragraphMarker, "\n\n")

	text = multiSpaceRe.ReplaceAllString(text, " ")

	text = letterDigitRe.ReplaceAllString(text, "$1 $2")
	text = digitLetterRe.ReplaceAllString(text, "$1 $2")

	return strings.TrimSpace(text)
}
