package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

// EasyVoiceClient talks to an EasyVoice edge-tts proxy over HTTP
type EasyVoiceClient struct {
	baseURL string
	client  *http.Client
}

func NewEasyVoiceClient(baseURL string) *EasyVoiceClient {
	return &EasyVoiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *EasyVoiceClient) Name() string { return "easyvoice" }

// Synthesize posts a single-utterance script and returns the MP3 body
func (c *EasyVoiceClient) Synthesize(ctx context.Context, u entities.Utterance) ([]byte, error) {
	payload := map[string]interface{}{
		"data": []entities.Utterance{u},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/api/v1/tts/generateJson"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("easyvoice returned status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("easyvoice returned empty audio")
	}
	return audio, nil
}
