package audio

import (
	"encoding/json"
	"hash/fnv"
	"os"
	"sort"
	"strings"
)

// VoiceTable maps (gender, personality) to candidate TTS voice names. The
// table is loaded once at startup from a JSON file shaped
// {"Male": {"沉稳": ["zh-CN-YunxiNeural", ...]}, ...}.
type VoiceTable struct {
	voices        map[string]map[string][]string
	narratorVoice string
}

// LoadVoiceTable reads the voice table file. A missing file is not an error;
// every lookup then falls back to the narrator voice.
func LoadVoiceTable(path, narratorVoice string) (*VoiceTable, error) {
	vt := &VoiceTable{
		voices:        map[string]map[string][]string{},
		narratorVoice: narratorVoice,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return vt, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &vt.voices); err != nil {
		return nil, err
	}
	return vt, nil
}

// NarratorVoice returns the narration fallback voice
func (t *VoiceTable) NarratorVoice() string {
	return t.narratorVoice
}

// Resolve picks a voice for a character. Selection is deterministic for the
// same name so a character keeps its voice across segments even before the
// registry row exists. Unresolved combinations fall back to the narrator
// voice.
func (t *VoiceTable) Resolve(name, gender, personality string) string {
	byPersonality, ok := t.voices[normalizeGender(gender)]
	if !ok {
		return t.narratorVoice
	}

	candidates := byPersonality[personality]
	if len(candidates) == 0 {
		// any voice of the right gender beats the narrator fallback
		keys := make([]string, 0, len(byPersonality))
		for k := range byPersonality {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			candidates = append(candidates, byPersonality[k]...)
		}
	}
	if len(candidates) == 0 {
		return t.narratorVoice
	}

	h := fnv.New32a()
	h.Write([]byte(name))
	return candidates[int(h.Sum32())%len(candidates)]
}

func normalizeGender(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male", "男", "男性":
		return "Male"
	case "female", "女", "女性":
		return "Female"
	default:
		return gender
	}
}
