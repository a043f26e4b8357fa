package tts

import (
	"context"
	"fmt"

	speakv1 "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	speakClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/speak"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// DeepgramClient synthesizes through Deepgram's Speak REST API. Per-utterance
// voice names are ignored; the configured aura model is used for every
// speaker.
type DeepgramClient struct {
	api   *speakv1.Client
	model string
}

func NewDeepgramClient(apiKey, model string) *DeepgramClient {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	c := speakClient.NewREST(apiKey, &interfaces.ClientOptions{})
	return &DeepgramClient{
		api:   speakv1.New(c),
		model: model,
	}
}

func (c *DeepgramClient) Name() string { return "deepgram" }

func (c *DeepgramClient) Synthesize(ctx context.Context, u entities.Utterance) ([]byte, error) {
	options := &interfaces.SpeakOptions{
		Model:     c.model,
		Encoding:  "mp3",
		Container: "none",
	}

	var buf interfaces.RawResponse
	if _, err := c.api.ToStream(ctx, u.Text, options, &buf); err != nil {
		return nil, fmt.Errorf("deepgram speak failed: %w", err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("deepgram returned empty audio")
	}
	return buf.Bytes(), nil
}
