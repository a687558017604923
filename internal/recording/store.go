// Package recording persists per-participant audio chunks and merges
// them into playable and transcribable artifacts after the meeting.
package recording

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	containerExt = ".webm"
	waveformExt  = ".wav"
)

var (
	ErrSegmentTooLarge = errors.New("segment too large")
	ErrInvalidID       = errors.New("invalid identifier")
	ErrInvalidSeq      = errors.New("invalid sequence number")
)

// Store writes segments under
// <root>/<meetingId>/<userId>/segments/<seq zero-padded>.webm so that
// lexicographic filename order equals numeric order. Segments for
// different (meeting, user, seq) tuples never share a file; writes for
// the same tuple must be serialized by the caller.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// validateID rejects ids that would escape the recordings root.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." {
		return ErrInvalidID
	}
	if strings.ContainsAny(id, `/\`) {
		return ErrInvalidID
	}
	return nil
}

func (s *Store) userDir(meetingID, userID string) string {
	return filepath.Join(s.root, meetingID, userID)
}

func (s *Store) segmentsDir(meetingID, userID string) string {
	return filepath.Join(s.userDir(meetingID, userID), "segments")
}

// MergedPaths returns the finalized artifact locations for a
// participant: the merged container and the mono 16 kHz waveform.
func (s *Store) MergedPaths(meetingID, userID string) (container, waveform string) {
	base := s.userDir(meetingID, userID)
	return filepath.Join(base, "merged"+containerExt), filepath.Join(base, "merged"+waveformExt)
}

// WriteSegment streams chunk into the segment file for (meetingID,
// userID, seq), enforcing a hard byte cap. On overflow or a failed
// copy the partial file is removed, so an error always means no
// residue on disk.
func (s *Store) WriteSegment(meetingID, userID string, seq int, chunk io.Reader, limitBytes int64) (string, error) {
	if err := validateID(meetingID); err != nil {
		return "", fmt.Errorf("meeting id: %w", err)
	}
	if err := validateID(userID); err != nil {
		return "", fmt.Errorf("user id: %w", err)
	}
	if seq < 0 {
		return "", ErrInvalidSeq
	}

	dir := s.segmentsDir(meetingID, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create segments dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%09d%s", seq, containerExt))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create segment: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(chunk, limitBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write segment: %w", err)
	}
	if n > limitBytes {
		_ = os.Remove(path)
		log.Warn().Str("module", "recording.store").Str("meeting", meetingID).Str("user", userID).Int("seq", seq).Int64("limit", limitBytes).Msg("segment over size limit, removed")
		return "", ErrSegmentTooLarge
	}

	log.Info().Str("module", "recording.store").Str("path", path).Int64("bytes", n).Msg("segment written")
	return path, nil
}

// SegmentPaths lists the participant's segment files in playback
// order. Sequence numbers need not be contiguous; sorting the
// zero-padded names is all the merge step requires.
func (s *Store) SegmentPaths(meetingID, userID string) ([]string, error) {
	if err := validateID(meetingID); err != nil {
		return nil, fmt.Errorf("meeting id: %w", err)
	}
	if err := validateID(userID); err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	paths, err := filepath.Glob(filepath.Join(s.segmentsDir(meetingID, userID), "*"+containerExt))
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
