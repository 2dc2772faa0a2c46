// File: internal/logfilter/decode.go
package logfilter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Encodings reported by decode.
const (
	EncodingPlain = "plain"
	EncodingGzip  = "gzip"
	EncodingZstd  = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decode sniffs the first bytes of r and, for gzip or zstd content, wraps it in
// the matching decompressor. Rotated logs compressed by lumberjack or logrotate
// are therefore filtered the same way as the live file.
func decode(r io.Reader, path string) (io.ReadCloser, string, error) {
	br := bufio.NewReader(r)
	// A short or empty file yields fewer bytes and io.EOF; that is plain text.
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, "", err
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, "", fmt.Errorf("decompress %s: %w", path, err)
		}
		return &decompressErrors{rc: gz, path: path}, EncodingGzip, nil
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, "", fmt.Errorf("decompress %s: %w", path, err)
		}
		return &decompressErrors{rc: dec.IOReadCloser(), path: path}, EncodingZstd, nil
	default:
		return io.NopCloser(br), EncodingPlain, nil
	}
}

// decompressErrors annotates errors from a decompressing reader with the file
// they came from. io.EOF passes through untouched.
type decompressErrors struct {
	rc   io.ReadCloser
	path string
}

func (d *decompressErrors) Read(p []byte) (int, error) {
	n, err := d.rc.Read(p)
	if err != nil && err != io.EOF {
		err = fmt.Errorf("decompress %s: %w", d.path, err)
	}
	return n, err
}

func (d *decompressErrors) Close() error {
	return d.rc.Close()
}
