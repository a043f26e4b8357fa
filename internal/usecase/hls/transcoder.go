package hls

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/pkg/config"
	"github.com/novelvoice-team/novelvoice/pkg/metrics"
)

// CommandRunner executes one external transcoder invocation. Injected so
// tests can run without ffmpeg installed.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, tail(out, 512))
	}
	return nil
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}

// Transcoder incrementally repackages a chapter audio file into a per-user
// HLS playlist, appending only segments past the already-emitted duration on
// each call
type Transcoder struct {
	cfg    *config.HLSConfig
	run    CommandRunner
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTranscoder creates a transcoder. runner may be nil to use ffmpeg via
// os/exec.
func NewTranscoder(cfg *config.HLSConfig, runner CommandRunner, logger *zap.Logger) *Transcoder {
	if runner == nil {
		runner = execRunner
	}
	return &Transcoder{
		cfg:    cfg,
		run:    runner,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// UserDir returns the working directory holding one user's playlist and
// segment files
func (t *Transcoder) UserDir(userID string) string {
	return filepath.Join(t.cfg.CacheDir, "user_"+userID)
}

// PlaylistPath returns the playlist file path for a user
func (t *Transcoder) PlaylistPath(userID string) string {
	return filepath.Join(t.UserDir(userID), PlaylistName)
}

// Status reports the current playlist state for a user
func (t *Transcoder) Status(userID string) (PlaylistStatus, error) {
	return readPlaylist(t.PlaylistPath(userID))
}

// Cleanup removes a user's working directory, forcing the next conversion to
// start a fresh playlist
func (t *Transcoder) Cleanup(userID string) error {
	return os.RemoveAll(t.UserDir(userID))
}

// Convert appends new segments from the source audio to the user's playlist.
// extraOffset shifts the source read position past the already-emitted
// duration. In incremental mode a bounded slice is processed and the end
// marker stripped; in base mode the whole remaining source is emitted and the
// playlist stays sealed. Returns the playlist path.
func (t *Transcoder) Convert(ctx context.Context, userID, sourcePath string, extraOffset float64, incremental bool) (string, error) {
	lock := t.userLock(userID)

	// someone else is already transcoding for this user; wait for their run
	// and serve whatever playlist it produced rather than racing on the
	// shared segment files
	if !lock.TryLock() {
		lock.Lock()
		lock.Unlock()
		return t.PlaylistPath(userID), nil
	}
	defer lock.Unlock()

	dir := t.UserDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create hls dir: %w", err)
	}
	playlist := t.PlaylistPath(userID)

	status, err := readPlaylist(playlist)
	if err != nil {
		return "", fmt.Errorf("failed to read playlist: %w", err)
	}

	// a sealed playlist already covers the whole source; rerunning ffmpeg
	// would seek past the end of the audio and fail
	if !incremental && status.Sealed {
		return playlist, nil
	}

	start := status.TotalDuration + extraOffset

	mode := "base"
	var sliceDur, segmentDur float64
	if incremental {
		mode = "incremental"
		if status.TotalDuration == 0 {
			// short first slice with small segments so players can start
			// almost immediately
			sliceDur, segmentDur = 12, 6
		} else {
			sliceDur, segmentDur = 60, 60
		}
	} else {
		segmentDur = 9999
	}

	args := []string{"-y", "-ss", formatSeconds(start)}
	if sliceDur > 0 {
		args = append(args, "-t", formatSeconds(sliceDur))
	}
	args = append(args,
		"-i", sourcePath,
		"-c:a", "aac",
		"-f", "hls",
		"-hls_time", formatSeconds(segmentDur),
		"-hls_list_size", "0",
		"-hls_segment_type", "mpegts",
		"-hls_flags", "independent_segments+append_list",
		"-hls_segment_filename", filepath.Join(dir, segmentPattern),
		playlist,
	)

	if err := t.run(ctx, t.cfg.FFmpegPath, args...); err != nil {
		metrics.HLSConversions.WithLabelValues(mode, "error").Inc()
		t.logger.Error("hls conversion failed",
			zap.String("user_id", userID),
			zap.String("mode", mode),
			zap.Float64("start", start),
			zap.Error(err))
		return "", err
	}

	if incremental {
		if err := stripEndMarker(playlist); err != nil {
			return "", fmt.Errorf("failed to strip playlist end marker: %w", err)
		}
	}

	metrics.HLSConversions.WithLabelValues(mode, "ok").Inc()
	t.logger.Info("🎬 hls conversion finished",
		zap.String("user_id", userID),
		zap.String("mode", mode),
		zap.Float64("start", start))
	return playlist, nil
}

func (t *Transcoder) userLock(userID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[userID] = lock
	}
	return lock
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
