package chunk

import "strings"

// Chunker parameter defaults.
const (
	DefaultTargetWords       = 250
	DefaultOverlapParagraphs = 1
	DefaultMinParagraphWords = 30
)

// Passage is one section-tagged output of the chunker, not yet carrying
// document provenance.
type Passage struct {
	Section string
	Text    string
}

// Chunker splits cleaned text into section-aware, size-bounded,
// overlapping passages. Splitting is deterministic: identical input
// yields identical passages in identical order.
type Chunker struct {
	targetWords       int
	overlapParagraphs int
	minParagraphWords int
}

// NewChunker creates a Chunker. Non-positive targetWords and negative
// overlap/minimum fall back to the defaults.
func NewChunker(targetWords, overlapParagraphs, minParagraphWords int) *Chunker {
	if targetWords <= 0 {
		targetWords = DefaultTargetWords
	}
	if overlapParagraphs < 0 {
		overlapParagraphs = DefaultOverlapParagraphs
	}
	if minParagraphWords < 0 {
		minParagraphWords = DefaultMinParagraphWords
	}
	return &Chunker{
		targetWords:       targetWords,
		overlapParagraphs: overlapParagraphs,
		minParagraphWords: minParagraphWords,
	}
}

// section is an intermediate block of paragraphs under one heading.
type section struct {
	heading    string
	paragraphs []string
}

// Split produces the ordered passages for text. Text is first divided
// into section blocks by the heading heuristic; each block is then
// independently re-chunked by the paragraph-budget algorithm and every
// resulting passage is tagged with the block's heading ("Unknown" when
// no heading precedes it).
func (c *Chunker) Split(text string) []Passage {
	var passages []Passage
	for _, sec := range splitSections(text) {
		paragraphs := c.filterNoise(sec.paragraphs)
		for _, body := range c.budget(paragraphs) {
			passages = append(passages, Passage{Section: sec.heading, Text: body})
		}
	}
	return passages
}

// splitSections scans text line by line, tracking the nearest preceding
// heading. A blank line terminates the current paragraph; a heading line
// terminates the current section. Paragraph text joins its lines with a
// single space.
func splitSections(text string) []section {
	var (
		sections   []section
		current    = section{heading: DefaultSection}
		paraLines  []string
		flushPara  func()
		flushBlock func()
	)

	flushPara = func() {
		if len(paraLines) == 0 {
			return
		}
		current.paragraphs = append(current.paragraphs, strings.Join(paraLines, " "))
		paraLines = nil
	}
	flushBlock = func() {
		flushPara()
		if len(current.paragraphs) > 0 {
			sections = append(sections, current)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flushPara()
			continue
		}
		if IsHeading(line) {
			flushBlock()
			current = section{heading: line}
			continue
		}
		paraLines = append(paraLines, line)
	}
	flushBlock()

	return sections
}

// filterNoise drops paragraphs below the minimum word count before
// budgeting. Page numbers, footers, and stray captions fall out here.
func (c *Chunker) filterNoise(paragraphs []string) []string {
	kept := paragraphs[:0:0]
	for _, p := range paragraphs {
		if wordCount(p) >= c.minParagraphWords {
			kept = append(kept, p)
		}
	}
	return kept
}

// budget groups paragraphs until the target word count is reached,
// carrying the configured paragraph overlap into the next passage. A
// final partial passage below the target is still emitted.
func (c *Chunker) budget(paragraphs []string) []string {
	var (
		chunks   []string
		current  []string
		curWords int
	)

	for _, p := range paragraphs {
		pWords := wordCount(p)

		if curWords+pWords > c.targetWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))

			overlap := c.overlapParagraphs
			if overlap > len(current) {
				overlap = len(current)
			}
			current = append([]string(nil), current[len(current)-overlap:]...)
			curWords = 0
			for _, kept := range current {
				curWords += wordCount(kept)
			}
		}

		current = append(current, p)
		curWords += pWords
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
