package entities

// Utterance is one speaker-tagged line of a voice script with its TTS
// parameters. Rate/Pitch/Volume are signed percentage/Hz directives
// ("+10%", "-20Hz"); empty means backend default.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Voice   string `json:"voice"`
	Rate    string `json:"rate,omitempty"`
	Pitch   string `json:"pitch,omitempty"`
	Volume  string `json:"volume,omitempty"`
}

// VoiceScript is the ordered rendering plan for one text segment. It is
// produced once per (chapter, segment) and cached as an immutable artifact.
type VoiceScript []Utterance

// NarratorSpeaker is the speaker tag the script LLM uses for narration lines
const NarratorSpeaker = "旁白"
