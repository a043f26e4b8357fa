package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/novelvoice-team/novelvoice/pkg/config"
)

// Client is a minimal client for OpenAI-compatible chat-completions APIs,
// used to turn chapter text into a voice script
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// Options override the configured key/endpoint/model for one client, so a
// novel can carry its own LLM account
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient creates a script LLM client. Empty option fields fall back to the
// process-wide configuration.
func NewClient(cfg *config.LLMConfig, opts Options) *Client {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	model := opts.Model
	if model == "" {
		model = cfg.Model
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string      `json:"model,omitempty"`
	Messages    interface{} `json:"messages,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// RawCharacter is a speaker discovered by the LLM in a text segment
type RawCharacter struct {
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	Personalities string `json:"personalities"`
}

// RawLine is one scripted line before voice resolution
type RawLine struct {
	Character string `json:"character"`
	Text      string `json:"text"`
	Rate      string `json:"rate,omitempty"`
	Pitch     string `json:"pitch,omitempty"`
	Volume    string `json:"volume,omitempty"`
}

// RawScript is the LLM's reply: a character table plus scripted lines
type RawScript struct {
	Characters []RawCharacter `json:"characters"`
	Segments   []RawLine      `json:"segments"`
}

const systemPrompt = "你是一个专业的有声书制作助手，擅长分析文本并生成配音脚本。"

// GenerateVoiceScript asks the LLM to produce a voice script for one text
// segment and parses the JSON reply
func (c *Client) GenerateVoiceScript(ctx context.Context, content string) (*RawScript, error) {
	reqBody := ChatRequest{
		Model: c.model,
		Messages: []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildPrompt(content)},
		},
		Temperature: 0.7,
		MaxTokens:   20000,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("llm returned status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, err
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("empty response from llm")
	}

	return parseScript(cr.Choices[0].Message.Content)
}

// parseScript extracts the script JSON from the assistant reply, tolerant of
// surrounding prose and markdown fences
func parseScript(reply string) (*RawScript, error) {
	cleaned := cleanForJSON(reply)

	var script RawScript
	if err := json.Unmarshal([]byte(cleaned), &script); err == nil {
		return &script, nil
	}

	// The model sometimes wraps the JSON in explanation text; take the
	// outermost braces.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in llm reply")
	}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &script); err != nil {
		return nil, fmt.Errorf("failed to parse llm script: %w", err)
	}
	return &script, nil
}

// cleanForJSON strips control characters that break json.Unmarshal while
// keeping newlines and tabs inside string values readable
func cleanForJSON(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func buildPrompt(content string) string {
	var b strings.Builder
	b.WriteString("分析下面的小说文本，识别其中的角色和对白，生成配音脚本。\n")
	b.WriteString("输出严格的JSON，格式如下：\n")
	b.WriteString(`{"characters":[{"name":"角色名","gender":"Male|Female","personalities":"性格"}],`)
	b.WriteString(`"segments":[{"character":"旁白或角色名","text":"台词或旁白内容","rate":"+0%","pitch":"+0Hz","volume":"+0%"}]}`)
	b.WriteString("\n要求：叙述部分的character为\"旁白\"；segments按原文顺序完整覆盖文本；")
	b.WriteString("rate/pitch/volume按语境推荐，不确定时用+0值。\n\n文本：\n")
	b.WriteString(content)
	return b.String()
}
