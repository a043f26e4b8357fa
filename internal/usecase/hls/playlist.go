package hls

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

const (
	PlaylistName   = "playlist.m3u8"
	segmentPattern = "segment_%03d.ts"
	endMarker      = "#EXT-X-ENDLIST"
	infPrefix      = "#EXTINF:"
)

// PlaylistStatus summarizes one user's playlist for status queries
type PlaylistStatus struct {
	Exists        bool    `json:"exists"`
	Sealed        bool    `json:"sealed"`
	SegmentCount  int     `json:"segment_count"`
	TotalDuration float64 `json:"total_duration"`
}

// readPlaylist parses a playlist file into its status. A missing file yields
// the zero status.
func readPlaylist(path string) (PlaylistStatus, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return PlaylistStatus{}, nil
	}
	if err != nil {
		return PlaylistStatus{}, err
	}
	defer f.Close()

	status := PlaylistStatus{Exists: true}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, infPrefix):
			v := strings.TrimSuffix(strings.TrimPrefix(line, infPrefix), ",")
			if d, err := strconv.ParseFloat(v, 64); err == nil {
				status.SegmentCount++
				status.TotalDuration += d
			}
		case line == endMarker:
			status.Sealed = true
		}
	}
	return status, scanner.Err()
}

// emittedDuration sums the duration directives already present in a playlist.
// This is the authoritative "already emitted" measure used to position the
// next transcoder invocation.
func emittedDuration(path string) (float64, error) {
	status, err := readPlaylist(path)
	if err != nil {
		return 0, err
	}
	return status.TotalDuration, nil
}

// stripEndMarker removes the end marker so players keep polling a playlist
// that will still grow
func stripEndMarker(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	kept := lines[:0]
	changed := false
	for _, line := range lines {
		if strings.TrimSpace(line) == endMarker {
			changed = true
			continue
		}
		kept = append(kept, line)
	}
	if !changed {
		return nil
	}
	return os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0o644)
}
