package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/domain/repositories"
	"github.com/novelvoice-team/novelvoice/pkg/config"
	"github.com/novelvoice-team/novelvoice/pkg/llm"
	"github.com/novelvoice-team/novelvoice/pkg/metrics"
)

// ScriptLLM produces a raw voice script for one text segment
type ScriptLLM interface {
	GenerateVoiceScript(ctx context.Context, content string) (*llm.RawScript, error)
}

// LLMFactory builds a script LLM honoring per-novel overrides
type LLMFactory func(novel *entities.Novel) ScriptLLM

// ScriptGenerator turns text segments into voice scripts, caching each
// (chapter, segment) result durably so regeneration never calls the LLM
type ScriptGenerator struct {
	cfg      *config.Config
	charRepo repositories.CharacterRepository
	voices   *VoiceTable
	newLLM   LLMFactory
	logger   *zap.Logger
}

// NewScriptGenerator creates a script generator
func NewScriptGenerator(
	cfg *config.Config,
	charRepo repositories.CharacterRepository,
	voices *VoiceTable,
	newLLM LLMFactory,
	logger *zap.Logger,
) *ScriptGenerator {
	return &ScriptGenerator{
		cfg:      cfg,
		charRepo: charRepo,
		voices:   voices,
		newLLM:   newLLM,
		logger:   logger,
	}
}

// CachePath returns the immutable script artifact path for one segment
func (g *ScriptGenerator) CachePath(novelID, chapterID string, segmentIndex int) string {
	name := fmt.Sprintf("chapter_%s_segment_%d_script.json", chapterID, segmentIndex)
	return filepath.Join(g.cfg.ScriptCacheDir(novelID), name)
}

// Cached reports whether a script artifact already exists for the segment
func (g *ScriptGenerator) Cached(novelID, chapterID string, segmentIndex int) bool {
	_, err := os.Stat(g.CachePath(novelID, chapterID, segmentIndex))
	return err == nil
}

// ScriptFor returns the voice script for one segment, loading it from the
// cache when present and generating plus persisting it otherwise. The LLM is
// retried up to the configured attempt bound; when every attempt fails the
// caller is expected to skip the segment.
func (g *ScriptGenerator) ScriptFor(ctx context.Context, novel *entities.Novel, chapterID string, segmentIndex int, text string) (entities.VoiceScript, error) {
	path := g.CachePath(novel.ID.String(), chapterID, segmentIndex)

	if script, err := loadScript(path); err == nil {
		metrics.ScriptCacheLookups.WithLabelValues("hit").Inc()
		return script, nil
	}
	metrics.ScriptCacheLookups.WithLabelValues("miss").Inc()

	client := g.newLLM(novel)

	attempts := g.cfg.LLM.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var raw *llm.RawScript
	operation := func() error {
		start := time.Now()
		r, err := client.GenerateVoiceScript(ctx, text)
		metrics.ObserveLLM(start)
		if err != nil {
			g.logger.Warn("voice script generation attempt failed",
				zap.String("chapter_id", chapterID),
				zap.Int("segment", segmentIndex),
				zap.Error(err))
			return err
		}
		raw = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), uint64(attempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		metrics.ScriptFailures.Inc()
		return nil, fmt.Errorf("script generation exhausted %d attempts: %w", attempts, err)
	}

	script := g.convert(ctx, raw)

	// persist before use; a write failure costs future cache hits, not this run
	if err := saveScript(path, script); err != nil {
		g.logger.Warn("failed to persist script cache artifact",
			zap.String("path", path),
			zap.Error(err))
	}

	return script, nil
}

// convert resolves voices for a raw LLM script and registers newly discovered
// characters in the voice registry
func (g *ScriptGenerator) convert(ctx context.Context, raw *llm.RawScript) entities.VoiceScript {
	profiles := make(map[string]llm.RawCharacter, len(raw.Characters))
	for _, c := range raw.Characters {
		profiles[c.Name] = c
	}

	script := make(entities.VoiceScript, 0, len(raw.Segments))
	for _, line := range raw.Segments {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		u := entities.Utterance{
			Speaker: line.Character,
			Text:    text,
		}
		if !isZeroDirective(line.Rate) {
			u.Rate = line.Rate
		}
		if !isZeroDirective(line.Pitch) {
			u.Pitch = line.Pitch
		}
		if !isZeroDirective(line.Volume) {
			u.Volume = line.Volume
		}

		if line.Character == entities.NarratorSpeaker || line.Character == "" {
			u.Speaker = entities.NarratorSpeaker
			u.Voice = g.voices.NarratorVoice()
			u.Rate = clampRate(u.Rate, g.cfg.Audio.NarratorMinRate)
		} else {
			u.Voice = g.voiceFor(ctx, line.Character, profiles[line.Character])
		}

		script = append(script, u)
	}
	return script
}

// voiceFor returns the registered voice for a character, creating the
// registry row on first sight
func (g *ScriptGenerator) voiceFor(ctx context.Context, name string, profile llm.RawCharacter) string {
	existing, err := g.charRepo.GetByName(ctx, name)
	if err != nil {
		g.logger.Warn("voice registry lookup failed", zap.String("character", name), zap.Error(err))
	}
	if existing != nil && existing.Voice != "" {
		return existing.Voice
	}

	voice := g.voices.Resolve(name, profile.Gender, profile.Personalities)
	if existing == nil {
		character := entities.NewCharacter(name, profile.Gender, profile.Personalities, voice)
		if err := g.charRepo.Create(ctx, character); err != nil {
			g.logger.Warn("failed to register character", zap.String("character", name), zap.Error(err))
		}
	}
	return voice
}

func loadScript(path string) (entities.VoiceScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var script entities.VoiceScript
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, err
	}
	return script, nil
}

func saveScript(path string, script entities.VoiceScript) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(script)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// isZeroDirective reports whether a rate/pitch/volume directive is empty or
// numerically zero ("+0%", "-0Hz"), in which case it is omitted
func isZeroDirective(v string) bool {
	s := strings.TrimSpace(v)
	if s == "" {
		return true
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "Hz")
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == 0
}

// clampRate keeps narration at or above the configured minimum speaking rate
func clampRate(rate, minRate string) string {
	minVal, ok := percentValue(minRate)
	if !ok {
		return rate
	}
	cur, ok := percentValue(rate)
	if !ok || cur < minVal {
		return minRate
	}
	return rate
}

func percentValue(v string) (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
