package tts

import (
	"context"
	"fmt"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/pkg/config"
)

// Backend synthesizes one scripted utterance into MP3 audio bytes.
// Implementations must be safe for concurrent use.
type Backend interface {
	Synthesize(ctx context.Context, u entities.Utterance) ([]byte, error)
	Name() string
}

// NewBackend selects a synthesis backend from configuration
func NewBackend(cfg *config.TTSConfig) (Backend, error) {
	switch cfg.Backend {
	case "easyvoice", "":
		return NewEasyVoiceClient(cfg.EasyVoiceBaseURL), nil
	case "deepgram":
		return NewDeepgramClient(cfg.DeepgramAPIKey, cfg.DeepgramModel), nil
	default:
		return nil, fmt.Errorf("unknown tts backend: %s", cfg.Backend)
	}
}
