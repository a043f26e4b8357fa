package audio

import (
	"strings"
	"testing"
)

func repeatParagraphs(paragraphLen, count int) string {
	p := strings.Repeat("a", paragraphLen)
	parts := make([]string, count)
	for i := range parts {
		parts[i] = p
	}
	return strings.Join(parts, "\n")
}

func TestSplitContent_Reassembly(t *testing.T) {
	content := repeatParagraphs(50, 40)
	segments := SplitContent(content, 1500)

	if len(segments) == 0 {
		t.Fatal("expected at least one segment")
	}

	rejoined := strings.Join(segments, "\n")
	if rejoined != content {
		t.Errorf("rejoined segments do not reproduce the paragraph sequence")
	}
}

func TestSplitContent_StagedTargets(t *testing.T) {
	// 36 paragraphs of 100 chars = 3600 chars total; staged targets
	// 200/400/1500 should close segments at 200/400/1500/1500
	content := repeatParagraphs(100, 36)
	segments := SplitContent(content, 1500)

	if len(segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segments))
	}

	want := []int{200, 400, 1500, 1500}
	for i, w := range want {
		if got := segmentLen(segments[i]); got != w {
			t.Errorf("segment %d length = %d, want %d", i, got, w)
		}
	}
}

func TestSplitContent_ClosesAtTarget(t *testing.T) {
	// a segment past its floor closes as soon as the next paragraph would
	// cross the target, not only once it would cross 1.3x of it
	content := repeatParagraphs(60, 50)
	segments := SplitContent(content, 1500)

	if len(segments) < 2 {
		t.Fatal("expected multiple segments")
	}
	if got := segmentLen(segments[0]); got != 180 {
		t.Errorf("segment 0 length = %d, want 180", got)
	}
}

func TestSplitContent_FirstSegmentBounds(t *testing.T) {
	for _, paragraphLen := range []int{20, 60, 100, 130} {
		content := repeatParagraphs(paragraphLen, 3000/paragraphLen)
		segments := SplitContent(content, 1500)
		if len(segments) < 2 {
			t.Fatalf("paragraphLen=%d: expected multiple segments", paragraphLen)
		}
		seg0 := segmentLen(segments[0])
		if seg0 < 140 || seg0 > 260 {
			t.Errorf("paragraphLen=%d: segment 0 length %d outside [140, 260]", paragraphLen, seg0)
		}
	}
}

func TestSplitContent_TinyTailMerges(t *testing.T) {
	// the 90-char straggler after the 200-char first segment merges back
	content := strings.Repeat("a", 200) + "\n" + strings.Repeat("b", 90)
	segments := SplitContent(content, 1500)

	if len(segments) != 1 {
		t.Fatalf("expected tail to merge into 1 segment, got %d", len(segments))
	}
	if got := segmentLen(segments[0]); got != 290 {
		t.Errorf("merged segment length = %d, want 290", got)
	}
}

func TestSplitContent_NoParagraphs(t *testing.T) {
	segments := SplitContent("   \n  \n ", 1500)
	if segments != nil {
		t.Errorf("expected nil for blank content, got %v", segments)
	}
}

func TestSplitContent_SingleParagraph(t *testing.T) {
	content := "  just one line.  "
	segments := SplitContent(content, 1500)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0] != "just one line." {
		t.Errorf("expected trimmed content, got %q", segments[0])
	}
}

func TestSplitContent_ShortContent(t *testing.T) {
	// shorter than every close threshold: everything stays in one segment
	content := "first paragraph\nsecond paragraph"
	segments := SplitContent(content, 1500)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0] != content {
		t.Errorf("unexpected segment %q", segments[0])
	}
}

func TestSplitContent_Deterministic(t *testing.T) {
	content := repeatParagraphs(77, 50)
	a := SplitContent(content, 1500)
	b := SplitContent(content, 1500)
	if len(a) != len(b) {
		t.Fatalf("segment counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("segment %d differs between runs", i)
		}
	}
}
