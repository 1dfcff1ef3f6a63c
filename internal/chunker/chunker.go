// Package chunker splits document text into pieces sized for embedding.
//
// Two algorithms are provided: a sliding window with character overlap for
// plain text, and a heading-aware splitter for markdown that keeps sections
// together and prefixes oversized-section fragments with their heading so
// retrieval results retain structural context.
package chunker

import (
	"regexp"
	"strings"
)

// Config controls chunk sizing. Sizes are character counts, not tokens.
type Config struct {
	// ChunkSize is the target maximum characters per chunk.
	ChunkSize int

	// ChunkOverlap is the character budget of trailing segments carried
	// into the next chunk.
	ChunkOverlap int

	// Separator splits input into accumulation segments.
	Separator string

	// TopicMode enables recursive sliding-window splitting of oversized
	// markdown sections. When off, sections are split on headings only.
	TopicMode bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		Separator:    "\n",
		TopicMode:    true,
	}
}

// Chunker implements the two chunking algorithms behind one entry point.
type Chunker struct {
	config Config
}

// New creates a chunker with the given config, filling zero values from defaults.
func New(config Config) *Chunker {
	def := DefaultConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = def.ChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 2
	}
	if config.Separator == "" {
		config.Separator = def.Separator
	}
	return &Chunker{config: config}
}

// atxHeading matches markdown ATX headings: 1-6 hashes, a space, then text.
var atxHeading = regexp.MustCompile(`(?m)^#{1,6} .+$`)

// Chunk splits text into an ordered list of chunk strings. The slice
// position is used directly as the chunk index, so order is dense and
// 0-based. Markdown input uses heading-aware chunking; everything else
// uses the sliding window. Empty or whitespace-only input yields nil.
func (c *Chunker) Chunk(text string, isMarkdown bool) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if isMarkdown {
		return c.chunkByTopic(text)
	}
	return c.slidingWindow(text)
}

// slidingWindow accumulates separator-delimited segments into chunks of at
// most ChunkSize characters, seeding each new chunk with trailing segments
// of the previous one up to the ChunkOverlap budget. Whitespace-only
// segments are dropped entirely. The trailing partial chunk is always
// emitted.
func (c *Chunker) slidingWindow(text string) []string {
	segments := c.splitSegments(text)
	if len(segments) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	sep := c.config.Separator
	sepLen := len(sep)

	for _, seg := range segments {
		segLen := len(seg)
		if currentLen > 0 {
			segLen += sepLen
		}

		if currentLen > 0 && currentLen+segLen > c.config.ChunkSize {
			chunks = append(chunks, strings.Join(current, sep))

			// Seed the next chunk with a suffix of the closed chunk's
			// segments, newest last, within the overlap budget.
			current = c.overlapSuffix(current)
			currentLen = 0
			for i, s := range current {
				currentLen += len(s)
				if i > 0 {
					currentLen += sepLen
				}
			}

			segLen = len(seg)
			if currentLen > 0 {
				segLen += sepLen
			}
		}

		current = append(current, seg)
		currentLen += segLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, sep))
	}

	return chunks
}

// overlapSuffix returns the longest suffix of segments whose cumulative
// length fits the overlap budget, preserving order.
func (c *Chunker) overlapSuffix(segments []string) []string {
	if c.config.ChunkOverlap <= 0 {
		return nil
	}

	total := 0
	start := len(segments)
	for i := len(segments) - 1; i >= 0; i-- {
		total += len(segments[i])
		if total > c.config.ChunkOverlap {
			break
		}
		start = i
	}

	if start == len(segments) {
		return nil
	}
	// Copy so appends to the new chunk never clobber the emitted one.
	suffix := make([]string, len(segments)-start)
	copy(suffix, segments[start:])
	return suffix
}

// splitSegments splits on the separator and drops whitespace-only segments.
func (c *Chunker) splitSegments(text string) []string {
	raw := strings.Split(text, c.config.Separator)
	segments := make([]string, 0, len(raw))
	for _, seg := range raw {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// section is one heading-bounded slice of a markdown document.
type section struct {
	heading string // empty for the preamble before the first heading
	body    string // includes the heading line
}

// chunkByTopic partitions markdown into heading-bounded sections. Sections
// within ChunkSize are emitted verbatim; oversized sections fall back to
// the sliding window, each fragment prefixed with its heading. The
// fallback is flat, so recursion depth is bounded regardless of section
// size.
func (c *Chunker) chunkByTopic(text string) []string {
	sections := c.splitSections(text)
	if len(sections) == 0 {
		return c.slidingWindow(text)
	}

	var chunks []string
	for _, sec := range sections {
		body := strings.TrimSpace(sec.body)
		if body == "" {
			continue
		}

		if len(body) <= c.config.ChunkSize {
			chunks = append(chunks, body)
			continue
		}

		if !c.config.TopicMode {
			// Heading-only mode: oversized sections pass through whole.
			chunks = append(chunks, body)
			continue
		}

		for _, sub := range c.slidingWindow(body) {
			if sec.heading != "" && !strings.HasPrefix(sub, sec.heading) {
				sub = sec.heading + "\n\n" + sub
			}
			chunks = append(chunks, sub)
		}
	}

	return chunks
}

// splitSections partitions the document at ATX heading positions, with a
// virtual boundary at end of document. Content before the first heading
// becomes a headingless preamble section.
func (c *Chunker) splitSections(text string) []section {
	locs := atxHeading.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var sections []section
	if locs[0][0] > 0 {
		sections = append(sections, section{body: text[:locs[0][0]]})
	}

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, section{
			heading: text[loc[0]:loc[1]],
			body:    text[loc[0]:end],
		})
	}

	return sections
}

// HeadingLevel returns the ATX level of a heading line: the number of
// leading '#' characters before the first space. Zero for non-headings.
func HeadingLevel(line string) int {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(line) || line[level] != ' ' {
		return 0
	}
	return level
}
