package audio

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ResumeCheckpoint marks the last fully-flushed utterance of a generation
// task. It is written after every flushed utterance and deleted only when the
// chapter completes, so a failed or cancelled task can resume without
// re-synthesizing or duplicating bytes.
type ResumeCheckpoint struct {
	ChapterID         string    `json:"chapter_id"`
	SegmentIndex      int       `json:"segment_index"`
	LastCompletedItem int       `json:"last_completed_item"`
	AudioByteSize     int64     `json:"audio_byte_size"`
	Timestamp         time.Time `json:"timestamp"`
}

// CheckpointStore persists checkpoints next to their audio files
type CheckpointStore struct {
	verifySize bool
	logger     *zap.Logger
}

// NewCheckpointStore creates a checkpoint store. When verifySize is set, a
// checkpoint whose recorded byte size disagrees with the audio file on disk
// is discarded instead of trusted.
func NewCheckpointStore(verifySize bool, logger *zap.Logger) *CheckpointStore {
	return &CheckpointStore{verifySize: verifySize, logger: logger}
}

// checkpointPath derives the checkpoint file path from the audio file path
func checkpointPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, ".mp3") + ".resume.json"
}

// Save writes the checkpoint for an audio file. Failures are logged and
// swallowed; they degrade resumability, not the running task.
func (s *CheckpointStore) Save(audioPath string, cp ResumeCheckpoint) {
	cp.Timestamp = time.Now()
	data, err := json.Marshal(cp)
	if err != nil {
		s.logger.Warn("failed to encode checkpoint", zap.Error(err))
		return
	}
	if err := os.WriteFile(checkpointPath(audioPath), data, 0o644); err != nil {
		s.logger.Warn("failed to write checkpoint",
			zap.String("audio_path", audioPath),
			zap.Error(err))
	}
}

// Load returns the checkpoint for an audio file, or nil when there is none or
// it cannot be trusted. A checkpoint without its audio file is stale and is
// removed.
func (s *CheckpointStore) Load(audioPath string) *ResumeCheckpoint {
	data, err := os.ReadFile(checkpointPath(audioPath))
	if err != nil {
		return nil
	}

	var cp ResumeCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("discarding unreadable checkpoint",
			zap.String("audio_path", audioPath),
			zap.Error(err))
		s.Delete(audioPath)
		return nil
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		s.logger.Warn("checkpoint present but audio file missing, discarding",
			zap.String("audio_path", audioPath))
		s.Delete(audioPath)
		return nil
	}

	if s.verifySize && info.Size() != cp.AudioByteSize {
		s.logger.Warn("checkpoint byte size disagrees with audio file, discarding",
			zap.String("audio_path", audioPath),
			zap.Int64("checkpoint_bytes", cp.AudioByteSize),
			zap.Int64("file_bytes", info.Size()))
		s.Delete(audioPath)
		return nil
	}

	return &cp
}

// Delete removes the checkpoint for an audio file
func (s *CheckpointStore) Delete(audioPath string) {
	if err := os.Remove(checkpointPath(audioPath)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to delete checkpoint",
			zap.String("audio_path", audioPath),
			zap.Error(err))
	}
}
