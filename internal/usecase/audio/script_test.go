package audio

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/pkg/config"
	"github.com/novelvoice-team/novelvoice/pkg/llm"
)

// fakeScriptLLM returns queued results and counts invocations
type fakeScriptLLM struct {
	calls    int
	failures int
	script   *llm.RawScript
}

func (f *fakeScriptLLM) GenerateVoiceScript(ctx context.Context, content string) (*llm.RawScript, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("model overloaded")
	}
	return f.script, nil
}

// fakeCharacterRepo is a map-backed voice registry
type fakeCharacterRepo struct {
	characters map[string]*entities.Character
	created    int
}

func newFakeCharacterRepo() *fakeCharacterRepo {
	return &fakeCharacterRepo{characters: make(map[string]*entities.Character)}
}

func (r *fakeCharacterRepo) Create(ctx context.Context, c *entities.Character) error {
	r.characters[c.Name] = c
	r.created++
	return nil
}

func (r *fakeCharacterRepo) GetByName(ctx context.Context, name string) (*entities.Character, error) {
	return r.characters[name], nil
}

func (r *fakeCharacterRepo) List(ctx context.Context) ([]entities.Character, error) {
	out := make([]entities.Character, 0, len(r.characters))
	for _, c := range r.characters {
		out = append(out, *c)
	}
	return out, nil
}

func testScriptConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LLM: config.LLMConfig{MaxAttempts: 3},
		Audio: config.AudioConfig{
			Folder:          t.TempDir(),
			NarratorVoice:   narratorFallback,
			NarratorMinRate: "+10%",
		},
	}
}

func testVoiceTable(t *testing.T) *VoiceTable {
	t.Helper()
	path := writeVoiceTable(t, `{
		"Male": {"沉稳": ["zh-CN-YunxiNeural"]},
		"Female": {"温柔": ["zh-CN-XiaoxiaoNeural"]}
	}`)
	vt, err := LoadVoiceTable(path, narratorFallback)
	if err != nil {
		t.Fatal(err)
	}
	return vt
}

func newTestGenerator(t *testing.T, fake *fakeScriptLLM, repo *fakeCharacterRepo) *ScriptGenerator {
	t.Helper()
	factory := func(novel *entities.Novel) ScriptLLM { return fake }
	return NewScriptGenerator(testScriptConfig(t), repo, testVoiceTable(t), factory, zap.NewNop())
}

func sampleRawScript() *llm.RawScript {
	return &llm.RawScript{
		Characters: []llm.RawCharacter{
			{Name: "林远", Gender: "男", Personalities: "沉稳"},
		},
		Segments: []llm.RawLine{
			{Character: "旁白", Text: "夜色渐深。", Rate: "+0%"},
			{Character: "林远", Text: "谁在那里？", Rate: "+15%", Pitch: "+0Hz", Volume: "+0%"},
		},
	}
}

func TestScriptForGeneratesAndCaches(t *testing.T) {
	fake := &fakeScriptLLM{script: sampleRawScript()}
	repo := newFakeCharacterRepo()
	gen := newTestGenerator(t, fake, repo)
	novel := &entities.Novel{ID: uuid.New()}
	chapterID := uuid.New().String()

	script, err := gen.ScriptFor(context.Background(), novel, chapterID, 0, "夜色渐深。")
	if err != nil {
		t.Fatalf("ScriptFor: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("expected 1 model call, got %d", fake.calls)
	}
	if len(script) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(script))
	}
	if !gen.Cached(novel.ID.String(), chapterID, 0) {
		t.Error("expected a cache artifact after generation")
	}

	// a second call must be served from the cache
	again, err := gen.ScriptFor(context.Background(), novel, chapterID, 0, "夜色渐深。")
	if err != nil {
		t.Fatalf("cached ScriptFor: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("cache hit must not call the model, got %d calls", fake.calls)
	}
	if len(again) != len(script) {
		t.Errorf("cached script differs: %d vs %d utterances", len(again), len(script))
	}
}

func TestScriptForRetriesThenSucceeds(t *testing.T) {
	fake := &fakeScriptLLM{script: sampleRawScript(), failures: 2}
	gen := newTestGenerator(t, fake, newFakeCharacterRepo())
	novel := &entities.Novel{ID: uuid.New()}

	_, err := gen.ScriptFor(context.Background(), novel, uuid.New().String(), 0, "text")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if fake.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", fake.calls)
	}
}

func TestScriptForExhaustsAttempts(t *testing.T) {
	fake := &fakeScriptLLM{script: sampleRawScript(), failures: 10}
	gen := newTestGenerator(t, fake, newFakeCharacterRepo())
	novel := &entities.Novel{ID: uuid.New()}
	chapterID := uuid.New().String()

	_, err := gen.ScriptFor(context.Background(), novel, chapterID, 0, "text")
	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if fake.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", fake.calls)
	}
	if gen.Cached(novel.ID.String(), chapterID, 0) {
		t.Error("failed generation must not leave a cache artifact")
	}
}

func TestScriptForNarratorDirectives(t *testing.T) {
	fake := &fakeScriptLLM{script: &llm.RawScript{
		Segments: []llm.RawLine{
			{Character: "旁白", Text: "第一句。", Rate: "+5%"},
			{Character: "", Text: "第二句。"},
			{Character: "旁白", Text: "第三句。", Rate: "+20%"},
		},
	}}
	gen := newTestGenerator(t, fake, newFakeCharacterRepo())
	novel := &entities.Novel{ID: uuid.New()}

	script, err := gen.ScriptFor(context.Background(), novel, uuid.New().String(), 0, "text")
	if err != nil {
		t.Fatal(err)
	}
	if len(script) != 3 {
		t.Fatalf("expected 3 utterances, got %d", len(script))
	}

	for i, u := range script {
		if u.Speaker != entities.NarratorSpeaker {
			t.Errorf("utterance %d speaker = %q, want narrator", i, u.Speaker)
		}
		if u.Voice != narratorFallback {
			t.Errorf("utterance %d voice = %q, want %q", i, u.Voice, narratorFallback)
		}
	}
	// rates below the floor are raised, rates above it are kept
	if script[0].Rate != "+10%" {
		t.Errorf("slow narration rate = %q, want clamped +10%%", script[0].Rate)
	}
	if script[1].Rate != "+10%" {
		t.Errorf("unset narration rate = %q, want floor +10%%", script[1].Rate)
	}
	if script[2].Rate != "+20%" {
		t.Errorf("fast narration rate = %q, want unchanged +20%%", script[2].Rate)
	}
}

func TestScriptForCharacterVoices(t *testing.T) {
	fake := &fakeScriptLLM{script: sampleRawScript()}
	repo := newFakeCharacterRepo()
	gen := newTestGenerator(t, fake, repo)
	novel := &entities.Novel{ID: uuid.New()}

	script, err := gen.ScriptFor(context.Background(), novel, uuid.New().String(), 0, "text")
	if err != nil {
		t.Fatal(err)
	}

	if script[1].Voice != "zh-CN-YunxiNeural" {
		t.Errorf("character voice = %q, want table voice", script[1].Voice)
	}
	if repo.created != 1 {
		t.Errorf("expected 1 registry row, got %d", repo.created)
	}
	if script[1].Pitch != "" || script[1].Volume != "" {
		t.Errorf("zero directives should be omitted, got pitch=%q volume=%q", script[1].Pitch, script[1].Volume)
	}
	if script[1].Rate != "+15%" {
		t.Errorf("character rate = %q, want +15%%", script[1].Rate)
	}
}

func TestScriptForReusesRegisteredVoice(t *testing.T) {
	repo := newFakeCharacterRepo()
	repo.characters["林远"] = entities.NewCharacter("林远", "男", "沉稳", "zh-CN-YunyangNeural")

	fake := &fakeScriptLLM{script: sampleRawScript()}
	gen := newTestGenerator(t, fake, repo)
	novel := &entities.Novel{ID: uuid.New()}

	script, err := gen.ScriptFor(context.Background(), novel, uuid.New().String(), 0, "text")
	if err != nil {
		t.Fatal(err)
	}
	if script[1].Voice != "zh-CN-YunyangNeural" {
		t.Errorf("expected the registered voice, got %q", script[1].Voice)
	}
	if repo.created != 0 {
		t.Errorf("existing character must not be re-created, got %d creates", repo.created)
	}
}

func TestScriptForSkipsEmptyLines(t *testing.T) {
	fake := &fakeScriptLLM{script: &llm.RawScript{
		Segments: []llm.RawLine{
			{Character: "旁白", Text: "  "},
			{Character: "旁白", Text: "有内容。"},
		},
	}}
	gen := newTestGenerator(t, fake, newFakeCharacterRepo())
	novel := &entities.Novel{ID: uuid.New()}

	script, err := gen.ScriptFor(context.Background(), novel, uuid.New().String(), 0, "text")
	if err != nil {
		t.Fatal(err)
	}
	if len(script) != 1 {
		t.Errorf("blank lines should be dropped, got %d utterances", len(script))
	}
}

func TestCachePathLayout(t *testing.T) {
	gen := newTestGenerator(t, &fakeScriptLLM{}, newFakeCharacterRepo())
	path := gen.CachePath("nov-1", "chap-1", 3)

	if !strings.Contains(path, "novel-nov-1") {
		t.Errorf("cache path %q should be scoped to the novel", path)
	}
	if !strings.HasSuffix(path, "chapter_chap-1_segment_3_script.json") {
		t.Errorf("unexpected artifact name in %q", path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("CachePath must not create the artifact")
	}
}

func TestIsZeroDirective(t *testing.T) {
	zero := []string{"", "  ", "+0%", "-0%", "0%", "+0Hz", "0"}
	for _, v := range zero {
		if !isZeroDirective(v) {
			t.Errorf("isZeroDirective(%q) = false, want true", v)
		}
	}
	nonZero := []string{"+5%", "-12%", "+3Hz", "fast"}
	for _, v := range nonZero {
		if isZeroDirective(v) {
			t.Errorf("isZeroDirective(%q) = true, want false", v)
		}
	}
}
