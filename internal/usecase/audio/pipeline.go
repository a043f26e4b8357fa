package audio

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/internal/domain/repositories"
	"github.com/novelvoice-team/novelvoice/pkg/config"
	"github.com/novelvoice-team/novelvoice/pkg/metrics"
	"github.com/novelvoice-team/novelvoice/pkg/tts"
)

type messageKind int

const (
	msgScript messageKind = iota
	msgDone
	msgError
)

// scriptMessage is one item on the per-task queue between the script stage
// and the audio stage
type scriptMessage struct {
	kind         messageKind
	segmentIndex int
	script       entities.VoiceScript
	startItem    int
	reason       string
}

// Archiver uploads a finished chapter audio file to object storage
type Archiver interface {
	ArchiveChapterAudio(ctx context.Context, chapterID string, audioPath string) error
}

// Task is the transient run state of one admitted generation request
type Task struct {
	Novel     *entities.Novel
	Chapter   *entities.Chapter
	UserID    uuid.UUID
	Segments  []string
	Token     *CancelToken
	AudioPath string
}

// Pipeline runs chapter audio generation as two concurrent stages over a
// bounded queue: the script stage produces voice scripts in order, the audio
// stage synthesizes them and appends to the output file, checkpointing after
// every flushed utterance.
type Pipeline struct {
	cfg         *config.Config
	scripts     *ScriptGenerator
	backend     tts.Backend
	checkpoints *CheckpointStore
	chapterRepo repositories.ChapterRepository
	admission   *AdmissionManager
	archive     Archiver // optional
	preheat     func(ctx context.Context, task *Task)
	logger      *zap.Logger
}

// NewPipeline creates a generation pipeline. archive may be nil.
func NewPipeline(
	cfg *config.Config,
	scripts *ScriptGenerator,
	backend tts.Backend,
	checkpoints *CheckpointStore,
	chapterRepo repositories.ChapterRepository,
	admission *AdmissionManager,
	archive Archiver,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		scripts:     scripts,
		backend:     backend,
		checkpoints: checkpoints,
		chapterRepo: chapterRepo,
		admission:   admission,
		archive:     archive,
		logger:      logger,
	}
}

// SetPreheat installs a hook invoked once the script stage exhausts its
// segments, used to warm the next chapter's script cache
func (p *Pipeline) SetPreheat(fn func(ctx context.Context, task *Task)) {
	p.preheat = fn
}

// Run executes one generation task to a terminal outcome. It blocks until
// the task completes, fails, or is cancelled; callers run it on its own
// goroutine detached from any request context.
func (p *Pipeline) Run(ctx context.Context, task *Task) {
	start := time.Now()
	metrics.ActiveGenerations.Inc()
	defer metrics.ActiveGenerations.Dec()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()

	cp := p.checkpoints.Load(task.AudioPath)
	resuming := cp != nil

	startSegment, startItem := 0, 0
	if resuming {
		startSegment = cp.SegmentIndex
		startItem = cp.LastCompletedItem + 1
		p.logger.Info("▶️ resuming chapter generation from checkpoint",
			zap.String("chapter_id", task.Chapter.ID.String()),
			zap.Int("segment", startSegment),
			zap.Int("item", startItem))
	}

	queueSize := p.cfg.Audio.QueueSize
	if queueSize <= 0 {
		queueSize = 10
	}
	queue := make(chan scriptMessage, queueSize)

	go p.scriptStage(ctx, task, queue, startSegment, startItem)
	p.audioStage(ctx, task, queue, resuming)
}

// scriptStage produces the voice script for each remaining segment and
// enqueues it. The cancel token is checked after every segment.
func (p *Pipeline) scriptStage(ctx context.Context, task *Task, queue chan<- scriptMessage, startSegment, startItem int) {
	chapterID := task.Chapter.ID.String()

	for i := startSegment; i < len(task.Segments); i++ {
		script, err := p.scripts.ScriptFor(ctx, task.Novel, chapterID, i, task.Segments[i])
		if err != nil {
			// skipped segment: the chapter keeps going with a content gap
			p.logger.Warn("⚠️ skipping segment after script generation failure",
				zap.String("chapter_id", chapterID),
				zap.Int("segment", i),
				zap.Error(err))
			continue
		}

		item := 0
		if i == startSegment {
			item = startItem
		}
		if !p.enqueue(queue, scriptMessage{kind: msgScript, segmentIndex: i, script: script, startItem: item}, task.Token) {
			return
		}

		if task.Token.Cancelled() {
			p.enqueue(queue, scriptMessage{kind: msgError, reason: "cancelled"}, task.Token)
			return
		}
	}

	if !p.enqueue(queue, scriptMessage{kind: msgDone}, task.Token) {
		return
	}

	if p.preheat != nil {
		p.preheat(ctx, task)
	}
}

// enqueue blocks until the message is queued, giving up when the task was
// cancelled so a dead audio stage cannot wedge this goroutine forever. The
// error sentinel gets a short grace window before giving up, in case the
// audio stage is mid-utterance.
func (p *Pipeline) enqueue(queue chan<- scriptMessage, msg scriptMessage, token *CancelToken) bool {
	attempts := 0
	for {
		select {
		case queue <- msg:
			return true
		case <-time.After(time.Second):
			if !token.Cancelled() {
				continue
			}
			if msg.kind != msgError {
				return false
			}
			attempts++
			if attempts >= 5 {
				return false
			}
		}
	}
}

// audioStage consumes scripts from the queue, synthesizes each utterance and
// appends the audio to the output file
func (p *Pipeline) audioStage(ctx context.Context, task *Task, queue <-chan scriptMessage, resuming bool) {
	chapterID := task.Chapter.ID.String()

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if resuming {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(task.AudioPath, flags, 0o644)
	if err != nil {
		p.logger.Error("failed to open chapter audio file",
			zap.String("path", task.AudioPath),
			zap.Error(err))
		p.finishFailed(ctx, task, "open audio file: "+err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		p.finishFailed(ctx, task, "stat audio file: "+err.Error())
		return
	}
	flushed := info.Size()

	bufSize := p.cfg.Audio.WriteBufferSize
	if bufSize <= 0 {
		bufSize = 100 * 1024
	}
	w := bufio.NewWriterSize(f, bufSize)

	dequeueTimeout := p.cfg.Audio.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 180 * time.Second
	}

	for {
		var msg scriptMessage
		select {
		case msg = <-queue:
		case <-time.After(dequeueTimeout):
			// stall detection only; the script stage may be waiting on a
			// slow LLM call
			if task.Token.Cancelled() {
				p.finishFailed(ctx, task, "cancelled")
				return
			}
			p.logger.Warn("⏳ audio stage waiting on script stage",
				zap.String("chapter_id", chapterID),
				zap.Duration("waited", dequeueTimeout))
			continue
		}

		switch msg.kind {
		case msgDone:
			if err := w.Flush(); err != nil {
				p.finishFailed(ctx, task, "flush audio file: "+err.Error())
				return
			}
			p.finishComplete(ctx, task)
			return

		case msgError:
			w.Flush()
			p.finishFailed(ctx, task, msg.reason)
			return

		case msgScript:
			for item := msg.startItem; item < len(msg.script); item++ {
				if task.Token.Cancelled() {
					w.Flush()
					p.finishFailed(ctx, task, "cancelled")
					return
				}

				audio, err := p.backend.Synthesize(ctx, msg.script[item])
				if err != nil {
					// skipped utterance: logged content gap, never fatal
					p.logger.Warn("⚠️ skipping utterance after synthesis failure",
						zap.String("chapter_id", chapterID),
						zap.Int("segment", msg.segmentIndex),
						zap.Int("item", item),
						zap.Error(err))
					metrics.UtterancesTotal.WithLabelValues("skipped").Inc()
					continue
				}

				if _, err := w.Write(audio); err != nil {
					p.finishFailed(ctx, task, "write audio file: "+err.Error())
					return
				}
				if err := w.Flush(); err != nil {
					p.finishFailed(ctx, task, "flush audio file: "+err.Error())
					return
				}
				flushed += int64(len(audio))

				p.checkpoints.Save(task.AudioPath, ResumeCheckpoint{
					ChapterID:         chapterID,
					SegmentIndex:      msg.segmentIndex,
					LastCompletedItem: item,
					AudioByteSize:     flushed,
				})
				metrics.UtterancesTotal.WithLabelValues("ok").Inc()
				metrics.AudioBytesWritten.Add(float64(len(audio)))
			}
		}
	}
}

// finishComplete flips the chapter to complete, archives the file and clears
// the task's admission entry
func (p *Pipeline) finishComplete(ctx context.Context, task *Task) {
	chapterID := task.Chapter.ID.String()

	if err := p.chapterRepo.UpdateAudioStatus(ctx, task.Chapter.ID, entities.AudioStatusComplete, task.AudioPath); err != nil {
		p.logger.Error("failed to mark chapter complete",
			zap.String("chapter_id", chapterID),
			zap.Error(err))
	}

	if p.archive != nil {
		if err := p.archive.ArchiveChapterAudio(ctx, chapterID, task.AudioPath); err != nil {
			p.logger.Warn("failed to archive chapter audio",
				zap.String("chapter_id", chapterID),
				zap.Error(err))
		}
	}

	p.checkpoints.Delete(task.AudioPath)
	p.admission.Clear(task.UserID, task.Chapter.ID)
	metrics.GenerationsTotal.WithLabelValues("complete").Inc()

	p.logger.Info("✅ chapter audio generation complete",
		zap.String("chapter_id", chapterID),
		zap.String("path", task.AudioPath))
}

// finishFailed flips the chapter to failed, keeps the checkpoint for a later
// resume and clears the task's admission entry
func (p *Pipeline) finishFailed(ctx context.Context, task *Task, reason string) {
	chapterID := task.Chapter.ID.String()

	// unblock the script stage if it is still producing
	task.Token.Cancel()

	if err := p.chapterRepo.UpdateAudioStatus(ctx, task.Chapter.ID, entities.AudioStatusFailed, task.AudioPath); err != nil {
		p.logger.Error("failed to mark chapter failed",
			zap.String("chapter_id", chapterID),
			zap.Error(err))
	}

	p.admission.Clear(task.UserID, task.Chapter.ID)

	outcome := "failed"
	if reason == "cancelled" {
		outcome = "cancelled"
	}
	metrics.GenerationsTotal.WithLabelValues(outcome).Inc()

	p.logger.Info("🛑 chapter audio generation stopped",
		zap.String("chapter_id", chapterID),
		zap.String("reason", reason))
}
