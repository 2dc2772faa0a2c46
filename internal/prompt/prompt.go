// File: internal/prompt/prompt.go
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultPrompt         = "Filter by: "
	DefaultInvalidMessage = "Invalid input. Please enter a valid number."
)

var (
	// ErrNoInput is returned when the input ends before a valid key was read.
	ErrNoInput = fmt.Errorf("no filter key entered: %w", io.EOF)
	// ErrTooManyAttempts is returned once the configured attempt limit is used up.
	ErrTooManyAttempts = errors.New("too many invalid filter keys")
)

// Reader asks for a filter key until a valid integer is entered.
type Reader struct {
	in             *bufio.Reader
	out            io.Writer
	logger         *zap.Logger
	prompt         string
	invalidMessage string
	maxAttempts    int
}

// Option configures a Reader.
type Option func(*Reader)

// WithPrompt sets the text written before each read.
func WithPrompt(text string) Option {
	return func(r *Reader) { r.prompt = text }
}

// WithInvalidMessage sets the line written after an unparsable entry.
func WithInvalidMessage(text string) Option {
	return func(r *Reader) { r.invalidMessage = text }
}

// WithMaxAttempts limits the number of invalid entries. Zero or less means unlimited.
func WithMaxAttempts(n int) Option {
	return func(r *Reader) { r.maxAttempts = n }
}

// WithLogger attaches a logger for rejected entries.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) { r.logger = logger }
}

// New creates a Reader that reads lines from in and writes prompts to out.
func New(in io.Reader, out io.Writer, opts ...Option) *Reader {
	r := &Reader{
		in:             bufio.NewReader(in),
		out:            out,
		logger:         zap.NewNop(),
		prompt:         DefaultPrompt,
		invalidMessage: DefaultInvalidMessage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one line of any length without blocking past ctx.
// The read runs on its own goroutine; after a cancellation it stays parked
// on the input until that yields a line or EOF, and the Reader must not be
// used again.
func (r *Reader) readLine(ctx context.Context) (string, error) {
	result := make(chan lineResult, 1)
	go func() {
		line, err := r.in.ReadString('\n')
		result <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-result:
		// A line and a cancellation can arrive together; cancellation wins.
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if errors.Is(res.err, io.EOF) {
			if res.line == "" {
				return "", ErrNoInput
			}
			return res.line, nil
		}
		if res.err != nil {
			return "", fmt.Errorf("failed to read filter key: %w", res.err)
		}
		return res.line, nil
	}
}

// ReadKey prompts until a line parses as a base-10 integer and returns it.
// Invalid entries print the invalid-input message and prompt again. A
// cancelled ctx ends the wait immediately, even mid-read.
func (r *Reader) ReadKey(ctx context.Context) (int, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if _, err := io.WriteString(r.out, r.prompt); err != nil {
			return 0, fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := r.readLine(ctx)
		if err != nil {
			return 0, err
		}

		key, err := ParseKey(line)
		if err == nil {
			return key, nil
		}

		r.logger.Debug("Rejected filter key.", zap.Int("length", len(line)), zap.Int("attempt", attempt), zap.Error(err))
		if _, err := fmt.Fprintln(r.out, r.invalidMessage); err != nil {
			return 0, fmt.Errorf("failed to write message: %w", err)
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return 0, fmt.Errorf("%w: gave up after %d attempts", ErrTooManyAttempts, attempt)
		}
	}
}

// ParseKey parses a filter key. Surrounding whitespace is ignored and an
// optional leading sign is accepted. Values outside the int range are invalid.
func ParseKey(text string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(text))
}
