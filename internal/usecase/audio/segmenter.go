package audio

import "strings"

const (
	firstTarget  = 200
	secondTarget = 400

	// default-stage close bounds
	defaultStageMin = 200

	// a trailing segment shorter than this merges into the previous one
	minTailLength = 100
)

// SplitContent splits chapter text into ordered segments for scripting.
// Paragraphs are single-newline separated; targets are staged so playback can
// start quickly: 200 chars for segment 0, 400 for segment 1, defaultLen for
// the rest. Deterministic for identical input.
func SplitContent(content string, defaultLen int) []string {
	if defaultLen <= 0 {
		defaultLen = 1500
	}

	var paragraphs []string
	for _, line := range strings.Split(content, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var segments []string
	var current []string
	currentLen := 0

	for _, p := range paragraphs {
		minLen, target := stageBounds(len(segments), defaultLen)

		potential := currentLen + len(p)
		if currentLen >= minLen && potential > target {
			segments = append(segments, strings.Join(current, "\n"))
			current = current[:0]
			currentLen = 0
		}
		current = append(current, p)
		currentLen += len(p)
	}
	if currentLen > 0 {
		segments = append(segments, strings.Join(current, "\n"))
	}

	// avoid a tiny trailing segment
	if n := len(segments); n > 1 && segmentLen(segments[n-1]) < minTailLength {
		segments[n-2] = segments[n-2] + "\n" + segments[n-1]
		segments = segments[:n-1]
	}

	return segments
}

// stageBounds returns the floor and target for the segment at the given
// index. A segment closes once it holds at least 0.7x its target (a flat
// floor for the default stage) and the next paragraph would push it past the
// target.
func stageBounds(index, defaultLen int) (minLen, target int) {
	switch index {
	case 0:
		return firstTarget * 7 / 10, firstTarget
	case 1:
		return secondTarget * 7 / 10, secondTarget
	default:
		return defaultStageMin, defaultLen
	}
}

// segmentLen counts the text length of a segment excluding the paragraph
// separators it was joined with
func segmentLen(segment string) int {
	return len(segment) - strings.Count(segment, "\n")
}
