package audio

import (
	"os"
	"path/filepath"
	"testing"
)

const narratorFallback = "zh-CN-YunjianNeural"

func writeVoiceTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voices.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadVoiceTableMissingFile(t *testing.T) {
	vt, err := LoadVoiceTable(filepath.Join(t.TempDir(), "absent.json"), narratorFallback)
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if got := vt.Resolve("林远", "male", "沉稳"); got != narratorFallback {
		t.Errorf("empty table should resolve to narrator voice, got %q", got)
	}
}

func TestLoadVoiceTableBadJSON(t *testing.T) {
	path := writeVoiceTable(t, "{broken")
	if _, err := LoadVoiceTable(path, narratorFallback); err == nil {
		t.Error("expected an error for malformed voice table")
	}
}

func TestResolveDeterministic(t *testing.T) {
	path := writeVoiceTable(t, `{
		"Male": {"沉稳": ["zh-CN-YunxiNeural", "zh-CN-YunyangNeural", "zh-CN-YunzeNeural"]}
	}`)
	vt, err := LoadVoiceTable(path, narratorFallback)
	if err != nil {
		t.Fatal(err)
	}

	first := vt.Resolve("林远", "Male", "沉稳")
	for i := 0; i < 10; i++ {
		if got := vt.Resolve("林远", "Male", "沉稳"); got != first {
			t.Fatalf("voice changed between lookups: %q vs %q", got, first)
		}
	}
	if first == narratorFallback {
		t.Errorf("expected a table voice, got narrator fallback")
	}
}

func TestResolveGenderNormalization(t *testing.T) {
	path := writeVoiceTable(t, `{
		"Female": {"温柔": ["zh-CN-XiaoxiaoNeural"]}
	}`)
	vt, err := LoadVoiceTable(path, narratorFallback)
	if err != nil {
		t.Fatal(err)
	}

	for _, gender := range []string{"Female", "female", "女", "女性", " FEMALE "} {
		if got := vt.Resolve("苏瑶", gender, "温柔"); got != "zh-CN-XiaoxiaoNeural" {
			t.Errorf("gender %q resolved to %q", gender, got)
		}
	}
}

func TestResolvePersonalityFallback(t *testing.T) {
	path := writeVoiceTable(t, `{
		"Male": {
			"沉稳": ["zh-CN-YunxiNeural"],
			"暴躁": ["zh-CN-YunyeNeural"]
		}
	}`)
	vt, err := LoadVoiceTable(path, narratorFallback)
	if err != nil {
		t.Fatal(err)
	}

	// unknown personality still lands on a male voice, not the narrator
	got := vt.Resolve("王五", "Male", "神秘")
	if got != "zh-CN-YunxiNeural" && got != "zh-CN-YunyeNeural" {
		t.Errorf("expected a gender-wide fallback voice, got %q", got)
	}

	// and stays stable for the same name
	if again := vt.Resolve("王五", "Male", "神秘"); again != got {
		t.Errorf("fallback voice changed: %q vs %q", again, got)
	}
}

func TestResolveUnknownGender(t *testing.T) {
	path := writeVoiceTable(t, `{
		"Male": {"沉稳": ["zh-CN-YunxiNeural"]}
	}`)
	vt, err := LoadVoiceTable(path, narratorFallback)
	if err != nil {
		t.Fatal(err)
	}
	if got := vt.Resolve("它", "robot", "冷漠"); got != narratorFallback {
		t.Errorf("unknown gender should fall back to narrator, got %q", got)
	}
}
