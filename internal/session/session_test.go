// File: internal/session/session_test.go
package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/logtag/internal/config"
	"github.com/xkilldash9x/logtag/internal/logfilter"
	"github.com/xkilldash9x/logtag/internal/prompt"
)

// -- Mocks --

type MockLineFilter struct {
	mock.Mock
}

func (m *MockLineFilter) Filter(path string, key int) ([]string, error) {
	args := m.Called(path, key)
	lines, _ := args.Get(0).([]string)
	return lines, args.Error(1)
}

// -- Helpers --

func defaultFilterConfig() config.FilterConfig {
	return config.NewDefaultConfig().Filter
}

// runWithFile runs a full session against an in-memory log.txt.
func runWithFile(t *testing.T, content, input string) (string, error) {
	t.Helper()
	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "log.txt", []byte(content), 0o644))

	logger := zaptest.NewLogger(t)
	s := New(defaultFilterConfig(), logfilter.New(memFs, logger), logger)

	var out bytes.Buffer
	err := s.Run(context.Background(), strings.NewReader(input), &out)
	return out.String(), err
}

// -- End-to-end Scenarios --

func TestRun_Scenarios(t *testing.T) {
	t.Run("quoted tag does not match", func(t *testing.T) {
		out, err := runWithFile(t,
			"(\"1\") this is line A\n(2) this is line B\n(1) this is line C\n",
			"1\n")
		require.NoError(t, err)
		assert.Equal(t, "Filter by: Filtered lines for (1):\n(1) this is line C\n", out)
	})

	t.Run("order is preserved", func(t *testing.T) {
		out, err := runWithFile(t, "(2) x\n(2) y\n(3) z\n", "2\n")
		require.NoError(t, err)
		assert.Equal(t, "Filter by: Filtered lines for (2):\n(2) x\n(2) y\n", out)
	})

	t.Run("no match prints only the header", func(t *testing.T) {
		out, err := runWithFile(t, "(2) x\n", "4\n")
		require.NoError(t, err)
		assert.Equal(t, "Filter by: Filtered lines for (4):\n", out)
	})

	t.Run("empty file prints only the header", func(t *testing.T) {
		out, err := runWithFile(t, "", "0\n")
		require.NoError(t, err)
		assert.Equal(t, "Filter by: Filtered lines for (0):\n", out)
	})

	t.Run("invalid input reprompts before filtering", func(t *testing.T) {
		out, err := runWithFile(t, "(5) five\n(6) six\n", "abc\n5\n")
		require.NoError(t, err)
		assert.Equal(t,
			"Filter by: Invalid input. Please enter a valid number.\nFilter by: Filtered lines for (5):\n(5) five\n",
			out)
	})

	t.Run("trailing whitespace is trimmed for display", func(t *testing.T) {
		out, err := runWithFile(t, "(1) padded   \t\r\n(1) plain", "1\n")
		require.NoError(t, err)
		assert.Equal(t, "Filter by: Filtered lines for (1):\n(1) padded\n(1) plain\n", out)
	})
}

// -- Error Propagation --

func TestRun_FileErrorPropagates(t *testing.T) {
	s := New(defaultFilterConfig(), logfilter.New(afero.NewMemMapFs(), nil), zaptest.NewLogger(t))

	var out bytes.Buffer
	err := s.Run(context.Background(), strings.NewReader("1\n"), &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "Filter by: ", out.String(), "no header is printed when the file cannot be read")
}

func TestRun_UsesConfiguredPath(t *testing.T) {
	mockFilter := new(MockLineFilter)
	mockFilter.On("Filter", "/var/log/app/threads.log", 3).Return([]string{"(3) hello\n"}, nil).Once()

	cfg := defaultFilterConfig()
	cfg.LogPath = "/var/log/app/threads.log"
	s := New(cfg, mockFilter, nil)

	var out bytes.Buffer
	require.NoError(t, s.Run(context.Background(), strings.NewReader("3\n"), &out))
	assert.Equal(t, "Filter by: Filtered lines for (3):\n(3) hello\n", out.String())
	mockFilter.AssertExpectations(t)
}

func TestRun_NoKeyNeverFilters(t *testing.T) {
	mockFilter := new(MockLineFilter)
	s := New(defaultFilterConfig(), mockFilter, zaptest.NewLogger(t))

	err := s.Run(context.Background(), strings.NewReader(""), &bytes.Buffer{})

	assert.ErrorIs(t, err, prompt.ErrNoInput)
	mockFilter.AssertNotCalled(t, "Filter", mock.Anything, mock.Anything)
}

func TestRun_MaxAttemptsFromConfig(t *testing.T) {
	mockFilter := new(MockLineFilter)
	cfg := defaultFilterConfig()
	cfg.MaxAttempts = 1
	s := New(cfg, mockFilter, zaptest.NewLogger(t))

	err := s.Run(context.Background(), strings.NewReader("x\n1\n"), &bytes.Buffer{})

	assert.ErrorIs(t, err, prompt.ErrTooManyAttempts)
	mockFilter.AssertNotCalled(t, "Filter", mock.Anything, mock.Anything)
}

// promptWatcher closes shown on the first write, once the prompt is on screen.
type promptWatcher struct {
	once  sync.Once
	shown chan struct{}
}

func (w *promptWatcher) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.shown) })
	return len(p), nil
}

func TestRun_InterruptAtPromptSkipsFiltering(t *testing.T) {
	mockFilter := new(MockLineFilter)
	s := New(defaultFilterConfig(), mockFilter, zaptest.NewLogger(t))

	pr, pw := io.Pipe()
	out := &promptWatcher{shown: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, pr, out) }()

	<-out.shown
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept waiting at the prompt after the context was cancelled")
	}

	// Input arriving after the interrupt is ignored.
	_, err := pw.Write([]byte("1\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	mockFilter.AssertNotCalled(t, "Filter", mock.Anything, mock.Anything)
}

func TestRender(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Render(&out, -7, []string{"(-7) a\n", "(-7) b  \n"}))
	assert.Equal(t, "Filtered lines for (-7):\n(-7) a\n(-7) b\n", out.String())
}
