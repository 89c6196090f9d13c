package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
)

// ErrFileRead wraps every failure to read a watched file.
var ErrFileRead = errors.New("error reading file")

// FileSource defines read access to the two files the bridge exposes.
type FileSource interface {
	// ReadLogbook returns the raw logbook text.
	ReadLogbook(ctx context.Context) (string, error)
	// ReadCurrentCallsign returns the current-callsign file content, trimmed.
	ReadCurrentCallsign(ctx context.Context) (string, error)
}

// LocalFileSource implements FileSource against the local file system.
// Every call re-reads from disk; nothing is cached.
type LocalFileSource struct {
	logbookPath string
	dxInputPath string
}

// NewLocalFileSource creates a new LocalFileSource.
func NewLocalFileSource(logbookPath, dxInputPath string) *LocalFileSource {
	return &LocalFileSource{logbookPath: logbookPath, dxInputPath: dxInputPath}
}

func (s *LocalFileSource) ReadLogbook(ctx context.Context) (string, error) {
	return s.read(ctx, s.logbookPath)
}

func (s *LocalFileSource) ReadCurrentCallsign(ctx context.Context) (string, error) {
	data, err := s.read(ctx, s.dxInputPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(data), nil
}

func (s *LocalFileSource) read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("%w: no path configured", ErrFileRead)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("ERROR (LocalFileSource): Failed to read '%s': %v", path, err)
		return "", fmt.Errorf("%w %s: %w", ErrFileRead, path, err)
	}
	return string(data), nil
}
