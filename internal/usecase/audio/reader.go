package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
	"github.com/novelvoice-team/novelvoice/pkg/metrics"
)

// ErrReaderStalled is returned when a tailing reader saw no file growth for
// the configured stall window. It terminates only that reader; the writing
// side is unaffected.
var ErrReaderStalled = errors.New("audio file stopped growing")

// ProbePlaceholder answers a [0,1] byte-range probe. Some players open a
// throwaway 2-byte request to sniff the content type before the real stream;
// these two bytes are an MP3 frame sync so the sniff succeeds.
var ProbePlaceholder = []byte{0xFF, 0xFB}

// StatusFunc reports the current persisted audio status of a chapter
type StatusFunc func(ctx context.Context) entities.AudioStatus

// GrowingFileReader streams a chapter audio file that may still be written
// to, following growth until the chapter completes or the file stalls. Each
// reader owns an independent file handle; any number may tail the same file.
type GrowingFileReader struct {
	path       string
	status     StatusFunc
	poll       time.Duration
	stallLimit int
	logger     *zap.Logger
}

// NewGrowingFileReader creates a reader for one chapter audio file
func NewGrowingFileReader(path string, status StatusFunc, poll time.Duration, stallLimit int, logger *zap.Logger) *GrowingFileReader {
	if poll <= 0 {
		poll = time.Second
	}
	if stallLimit <= 0 {
		stallLimit = 60
	}
	return &GrowingFileReader{
		path:       path,
		status:     status,
		poll:       poll,
		stallLimit: stallLimit,
		logger:     logger,
	}
}

// Tail copies bytes from the start offset to w until the file is fully
// delivered. It returns the number of bytes written. Writer errors (client
// disconnects) and context cancellation stop this reader only.
func (r *GrowingFileReader) Tail(ctx context.Context, w io.Writer, start int64) (int64, error) {
	f, err := r.waitForFile(ctx)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}

	var (
		total  int64
		offset = start
		buf    = make([]byte, 32*1024)
		stalls = 0
	)

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, readErr := f.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, werr
			}
			offset += int64(n)
			total += int64(n)
			metrics.StreamBytesSent.Add(float64(n))
			stalls = 0
		}
		if readErr == nil {
			continue
		}
		if readErr != io.EOF {
			return total, readErr
		}

		// at EOF: a complete chapter has nothing more coming
		if r.status(ctx) == entities.AudioStatusComplete {
			n, err := r.drain(f, w, offset)
			total += n
			return total, err
		}

		// still generating: wait for growth
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(r.poll):
		}

		info, err := os.Stat(r.path)
		if err != nil {
			return total, err
		}
		if info.Size() > offset {
			stalls = 0
			continue
		}
		stalls++
		if stalls >= r.stallLimit {
			r.logger.Warn("reader giving up on stalled audio file",
				zap.String("path", r.path),
				zap.Int64("offset", offset),
				zap.Int("stall_polls", stalls))
			return total, ErrReaderStalled
		}
	}
}

// waitForFile opens the audio file, polling briefly when the writer has not
// created it yet
func (r *GrowingFileReader) waitForFile(ctx context.Context) (*os.File, error) {
	for attempts := 0; ; attempts++ {
		f, err := os.Open(r.path)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) || attempts >= r.stallLimit {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.poll):
		}
	}
}

// drain copies whatever remains after completion was observed
func (r *GrowingFileReader) drain(f *os.File, w io.Writer, offset int64) (int64, error) {
	n, err := io.Copy(w, f)
	if n > 0 {
		metrics.StreamBytesSent.Add(float64(n))
	}
	if err != nil {
		return n, err
	}
	return n, nil
}
