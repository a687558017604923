package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotFound means the participant has no recorded segments.
var ErrNotFound = errors.New("no recorded segments")

// Artifacts are the outputs of a finalize: the concatenated container
// and the mono 16 kHz waveform derived from it.
type Artifacts struct {
	Container string `json:"webm"`
	Waveform  string `json:"wav"`
}

// Finalizer concatenates a participant's segments via the external
// transcoder. Merging tries a stream-copy first and falls back to
// re-encoding audio only; both outputs are overwritten on every call,
// so repeated finalizes are idempotent by replacement.
type Finalizer struct {
	Store  *Store
	Runner Runner
	FFmpeg string
}

func NewFinalizer(store *Store) *Finalizer {
	return &Finalizer{Store: store, Runner: ExecRunner{}, FFmpeg: "ffmpeg"}
}

func (f *Finalizer) Finalize(ctx context.Context, meetingID, userID string) (Artifacts, error) {
	segments, err := f.Store.SegmentPaths(meetingID, userID)
	if err != nil {
		return Artifacts{}, err
	}
	if len(segments) == 0 {
		return Artifacts{}, fmt.Errorf("%s/%s: %w", meetingID, userID, ErrNotFound)
	}

	manifest, err := writeConcatManifest(segments)
	if err != nil {
		return Artifacts{}, err
	}

	container, waveform := f.Store.MergedPaths(meetingID, userID)

	// Fast path: concatenate without re-encoding.
	err = f.Runner.Run(ctx, f.FFmpeg,
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", manifest,
		"-c", "copy",
		container,
	)
	if err != nil {
		log.Warn().Err(err).Str("module", "recording.finalizer").Str("meeting", meetingID).Str("user", userID).Msg("stream-copy merge failed, re-encoding audio")
		err = f.Runner.Run(ctx, f.FFmpeg,
			"-y",
			"-f", "concat", "-safe", "0",
			"-i", manifest,
			"-c:v", "copy",
			"-c:a", "libopus",
			container,
		)
		if err != nil {
			return Artifacts{}, fmt.Errorf("merge segments: %w", err)
		}
	}

	// Downsampled mono waveform for transcription. No fallback here.
	err = f.Runner.Run(ctx, f.FFmpeg,
		"-y",
		"-i", container,
		"-ac", "1",
		"-ar", "16000",
		waveform,
	)
	if err != nil {
		return Artifacts{}, fmt.Errorf("derive waveform: %w", err)
	}

	log.Info().Str("module", "recording.finalizer").Str("meeting", meetingID).Str("user", userID).Str("container", container).Str("waveform", waveform).Msg("finalized")
	return Artifacts{Container: container, Waveform: waveform}, nil
}

// writeConcatManifest writes the transcoder's concat input list next
// to the segments, one `file '<path>'` line per segment in order.
func writeConcatManifest(segments []string) (string, error) {
	dir := filepath.Dir(segments[0])
	var b strings.Builder
	for _, p := range segments {
		fmt.Fprintf(&b, "file '%s'\n", filepath.ToSlash(p))
	}
	path := filepath.Join(dir, "concat.txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat manifest: %w", err)
	}
	return path, nil
}
