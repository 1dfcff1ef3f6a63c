package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestChunk_EmptyInput(t *testing.T) {
	c := New(DefaultConfig())

	for _, input := range []string{"", "   ", "\n\n\n", " \t \n "} {
		if got := c.Chunk(input, false); got != nil {
			t.Errorf("expected nil chunks for %q, got %v", input, got)
		}
		if got := c.Chunk(input, true); got != nil {
			t.Errorf("expected nil markdown chunks for %q, got %v", input, got)
		}
	}
}

func TestChunk_ShortInputSingleChunk(t *testing.T) {
	c := New(DefaultConfig())

	chunks := c.Chunk("a short line of text", false)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "a short line of text" {
		t.Errorf("unexpected chunk content %q", chunks[0])
	}
}

func TestSlidingWindow_SizeBound(t *testing.T) {
	cfg := Config{ChunkSize: 50, ChunkOverlap: 10, Separator: "\n"}
	c := New(cfg)

	var lines []string
	maxSegment := 0
	for i := 0; i < 40; i++ {
		line := fmt.Sprintf("line %02d with some padding text", i)
		if len(line) > maxSegment {
			maxSegment = len(line)
		}
		lines = append(lines, line)
	}
	input := strings.Join(lines, "\n")

	chunks := c.Chunk(input, false)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// A chunk may exceed ChunkSize+ChunkOverlap by at most one segment.
	bound := cfg.ChunkSize + cfg.ChunkOverlap + maxSegment + 1
	for i, chunk := range chunks {
		if len(chunk) > bound {
			t.Errorf("chunk %d length %d exceeds bound %d", i, len(chunk), bound)
		}
	}
}

func TestSlidingWindow_PreservesContent(t *testing.T) {
	c := New(Config{ChunkSize: 40, ChunkOverlap: 0, Separator: "\n"})

	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("segment-%02d", i))
	}
	input := strings.Join(lines, "\n")

	chunks := c.Chunk(input, false)

	// With zero overlap, re-joining the chunks reconstructs every segment
	// exactly once, in order.
	joined := strings.Join(chunks, "\n")
	if joined != input {
		t.Errorf("content not preserved:\nwant %q\ngot  %q", input, joined)
	}
}

func TestSlidingWindow_OverlapSeedsNextChunk(t *testing.T) {
	c := New(Config{ChunkSize: 30, ChunkOverlap: 12, Separator: "\n"})

	input := "aaaaaaaaaa\nbbbbbbbbbb\ncccccccccc\ndddddddddd"
	chunks := c.Chunk(input, false)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	// The second chunk starts with the trailing segment of the first.
	first := strings.Split(chunks[0], "\n")
	tail := first[len(first)-1]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Errorf("expected chunk 1 to start with overlap %q, got %q", tail, chunks[1])
	}
}

func TestSlidingWindow_SkipsBlankSegments(t *testing.T) {
	c := New(Config{ChunkSize: 100, ChunkOverlap: 0, Separator: "\n"})

	chunks := c.Chunk("first\n\n   \nsecond\n\nthird", false)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "first\nsecond\nthird" {
		t.Errorf("blank segments should be dropped, got %q", chunks[0])
	}
}

func TestChunkByTopic_SectionsWithinSize(t *testing.T) {
	c := New(Config{ChunkSize: 100, ChunkOverlap: 20, Separator: "\n", TopicMode: true})

	input := "# Intro\nHello world.\n# Usage\nRun the tool."
	chunks := c.Chunk(input, true)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "# Intro\nHello world." {
		t.Errorf("unexpected first chunk %q", chunks[0])
	}
	if chunks[1] != "# Usage\nRun the tool." {
		t.Errorf("unexpected second chunk %q", chunks[1])
	}
}

func TestChunkByTopic_PreambleBeforeFirstHeading(t *testing.T) {
	c := New(DefaultConfig())

	chunks := c.Chunk("intro text before any heading\n# Section\nbody", true)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != "intro text before any heading" {
		t.Errorf("unexpected preamble chunk %q", chunks[0])
	}
}

func TestChunkByTopic_OversizedSectionSplitWithHeadingPrefix(t *testing.T) {
	c := New(Config{ChunkSize: 80, ChunkOverlap: 10, Separator: "\n", TopicMode: true})

	var body []string
	for i := 0; i < 10; i++ {
		body = append(body, fmt.Sprintf("paragraph %d with a reasonable amount of text", i))
	}
	input := "# Big Section\n" + strings.Join(body, "\n")

	chunks := c.Chunk(input, true)
	if len(chunks) < 2 {
		t.Fatalf("expected the oversized section to split, got %d chunks", len(chunks))
	}

	for i, chunk := range chunks {
		if !strings.HasPrefix(chunk, "# Big Section") {
			t.Errorf("chunk %d missing heading prefix: %q", i, chunk)
		}
	}
}

func TestChunkByTopic_HeadingOnlyMode(t *testing.T) {
	c := New(Config{ChunkSize: 30, ChunkOverlap: 5, Separator: "\n", TopicMode: false})

	input := "# One\n" + strings.Repeat("long body text ", 10) + "\n# Two\nshort"
	chunks := c.Chunk(input, true)

	// Heading-only mode never splits inside a section.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 section chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[0], "# One") || !strings.HasPrefix(chunks[1], "# Two") {
		t.Errorf("unexpected section boundaries: %v", chunks)
	}
}

func TestChunkByTopic_NoHeadingsFallsBackToWindow(t *testing.T) {
	c := New(Config{ChunkSize: 30, ChunkOverlap: 0, Separator: "\n", TopicMode: true})

	input := "plain text\nwith several lines\nbut no headings at all\nmore text here"
	chunks := c.Chunk(input, true)
	if len(chunks) < 2 {
		t.Fatalf("expected sliding-window fallback to split, got %d chunks", len(chunks))
	}
}

func TestChunkIndicesDense(t *testing.T) {
	c := New(Config{ChunkSize: 25, ChunkOverlap: 5, Separator: "\n"})

	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("row %02d text", i))
	}

	for _, markdown := range []bool{false, true} {
		chunks := c.Chunk(strings.Join(lines, "\n"), markdown)
		for i, chunk := range chunks {
			if strings.TrimSpace(chunk) == "" {
				t.Errorf("markdown=%v: chunk %d is empty", markdown, i)
			}
		}
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"# Title", 1},
		{"## Sub", 2},
		{"###### Deep", 6},
		{"####### TooDeep", 0},
		{"#NoSpace", 0},
		{"plain text", 0},
		{"#", 0},
		{"", 0},
	}

	for _, tt := range tests {
		if got := HeadingLevel(tt.line); got != tt.want {
			t.Errorf("HeadingLevel(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestNew_ConfigNormalisation(t *testing.T) {
	c := New(Config{ChunkSize: 0, ChunkOverlap: -1})
	if c.config.ChunkSize != DefaultConfig().ChunkSize {
		t.Errorf("expected default chunk size, got %d", c.config.ChunkSize)
	}
	if c.config.ChunkOverlap != 0 {
		t.Errorf("expected overlap clamped to 0, got %d", c.config.ChunkOverlap)
	}

	c = New(Config{ChunkSize: 100, ChunkOverlap: 100})
	if c.config.ChunkOverlap != 50 {
		t.Errorf("expected oversized overlap halved, got %d", c.config.ChunkOverlap)
	}
}
