// File: internal/logfilter/filter.go
package logfilter

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Prefix returns the literal tag a line must start with to match key, e.g. "(3)".
func Prefix(key int) string {
	return "(" + strconv.Itoa(key) + ")"
}

// Filter selects tagged lines from log files on a filesystem.
type Filter struct {
	fs     afero.Fs
	logger *zap.Logger
}

// New creates a Filter reading through fs. Use afero.NewOsFs() for the real disk.
func New(fs afero.Fs, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{
		fs:     fs,
		logger: logger.Named("logfilter"),
	}
}

// Filter returns, in file order, every line of the file at path that begins
// with Prefix(key). Lines keep their original line terminator.
//
// Errors opening or reading the file are returned as-is (typically an
// *fs.PathError), and no partial result is returned with them.
func (f *Filter) Filter(path string, key int) ([]string, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r, encoding, err := decode(file, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	lines, scanned, err := matchLines(r, key)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Filtered log file.",
		zap.String("path", path),
		zap.String("encoding", encoding),
		zap.String("prefix", Prefix(key)),
		zap.Int("scanned", scanned),
		zap.Int("matched", len(lines)),
	)
	return lines, nil
}

// MatchLines reads r to the end and returns the lines beginning with Prefix(key).
func MatchLines(r io.Reader, key int) ([]string, error) {
	lines, _, err := matchLines(r, key)
	return lines, err
}

func matchLines(r io.Reader, key int) ([]string, int, error) {
	prefix := Prefix(key)
	br := bufio.NewReader(r)

	var (
		matched []string
		scanned int
	)
	for {
		// ReadString keeps the '\n', and has no line length limit unlike bufio.Scanner.
		line, err := br.ReadString('\n')
		if line != "" {
			scanned++
			if strings.HasPrefix(line, prefix) {
				matched = append(matched, line)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, scanned, err
		}
	}
	if matched == nil {
		matched = []string{}
	}
	return matched, scanned, nil
}
