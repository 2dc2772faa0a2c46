// File: internal/session/session.go
package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/logtag/internal/config"
	"github.com/xkilldash9x/logtag/internal/logfilter"
	"github.com/xkilldash9x/logtag/internal/prompt"
)

// LineFilter returns the lines of the file at path that carry the tag for key.
// *logfilter.Filter is the production implementation.
type LineFilter interface {
	Filter(path string, key int) ([]string, error)
}

var _ LineFilter = (*logfilter.Filter)(nil)

// Session is one interactive filtering run: ask for a key, filter, print.
type Session struct {
	cfg    config.FilterConfig
	filter LineFilter
	logger *zap.Logger
}

// New creates a Session over the given filter settings.
func New(cfg config.FilterConfig, filter LineFilter, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:    cfg,
		filter: filter,
		logger: logger,
	}
}

// Run reads a key from in, filters the configured log file and writes the
// result to out. Errors from the filter are returned unchanged and leave out
// untouched past the prompt.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	runID := uuid.New().String()
	logger := s.logger.With(zap.String("runID", runID))

	reader := prompt.New(in, out,
		prompt.WithPrompt(s.cfg.Prompt),
		prompt.WithInvalidMessage(s.cfg.InvalidMessage),
		prompt.WithMaxAttempts(s.cfg.MaxAttempts),
		prompt.WithLogger(logger),
	)

	key, err := reader.ReadKey(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	lines, err := s.filter.Filter(s.cfg.LogPath, key)
	if err != nil {
		logger.Error("Failed to filter log file.", zap.String("path", s.cfg.LogPath), zap.Int("key", key), zap.Error(err))
		return err
	}

	logger.Info("Filtered log file.",
		zap.String("path", s.cfg.LogPath),
		zap.Int("key", key),
		zap.Int("matched", len(lines)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return Render(out, key, lines)
}

// Render writes the result header followed by each line with its trailing
// whitespace removed.
func Render(w io.Writer, key int, lines []string) error {
	if _, err := fmt.Fprintf(w, "Filtered lines for %s:\n", logfilter.Prefix(key)); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, strings.TrimRightFunc(line, unicode.IsSpace)); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
	}
	return nil
}
