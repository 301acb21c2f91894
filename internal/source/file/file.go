// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mia-platform/sluice/internal/source"
)

// Format is the encoding of a file input.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// StdinPath is the path that makes Open read from the standard input.
const StdinPath = "-"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ParseFormat returns the Format matching name. The empty string defaults to FormatJSONL.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		return FormatCSV, nil
	case "", "jsonl", "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath guesses the Format from the extension of path.
func FormatFromPath(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return FormatCSV
	}
	return FormatJSONL
}

// NewReader returns the reader decoding r as format. If r is an io.Closer it is closed with the reader.
func NewReader(r io.Reader, format Format) (source.Reader, error) {
	switch format {
	case FormatCSV:
		return NewCSVReader(r), nil
	case FormatJSONL:
		return NewJSONLReader(r), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Open opens the file at path and returns a reader decoding it as format.
func Open(path string, format Format) (source.Reader, error) {
	if path == StdinPath {
		return NewReader(io.NopCloser(os.Stdin), format)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	reader, err := NewReader(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	return reader, nil
}

func closeReader(r io.Reader) error {
	if closer, ok := r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
