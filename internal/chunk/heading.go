package chunk

import (
	"regexp"
	"strings"
	"unicode"
)

// titleCaseRe matches short Title-Case headings such as "Study Design"
// or "Results, Part 2". Anchored so trailing prose disqualifies a line.
var titleCaseRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9\- ,]{5,}$`)

// minHeadingLen filters out initials and stray page markers.
const minHeadingLen = 5

// IsHeading reports whether a line looks like a section heading. The
// heuristic: a trimmed line of at least five characters that does not end
// in a sentence terminator, and is either entirely upper-case or matches
// a short Title-Case pattern. Pure function; exhaustively unit tested.
func IsHeading(line string) bool {
	line = strings.TrimSpace(line)

	if len(line) < minHeadingLen {
		return false
	}

	switch line[len(line)-1] {
	case '.', '!', '?':
		return false
	}

	if isUpper(line) {
		return true
	}

	return titleCaseRe.MatchString(line)
}

// isUpper reports whether s contains at least one letter and no
// lower-case letters, mirroring Python's str.isupper semantics the
// original corpus tooling relied on.
func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
