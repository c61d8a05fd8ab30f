// Package iohelper reads HTTP response bodies with a size cap and releases
// connections back to the pool.
package iohelper

import (
	"errors"
	"fmt"
	"io"
)

// Standard body size limits.
const (
	// SmallMaxBodySize is for error bodies kept in diagnostics (8KB).
	SmallMaxBodySize int64 = 8 * 1024

	// DefaultMaxBodySize is for single-resource responses (1MB).
	DefaultMaxBodySize int64 = 1024 * 1024

	// PageMaxBodySize is for paginated list responses (32MB).
	PageMaxBodySize int64 = 32 * 1024 * 1024
)

// ErrBodyTooLarge indicates a body exceeded the configured limit.
var ErrBodyTooLarge = errors.New("iohelper: response body exceeds limit")

// ReadBody reads r up to maxSize bytes. A body longer than maxSize is an
// error rather than a silent truncation, since a cut JSON document would
// only fail later with a less useful message.
// If r is nil, ReadBody returns an empty slice.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return data, err
	}
	if int64(len(data)) > maxSize {
		return data[:maxSize], fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, maxSize)
	}
	return data, nil
}

// ReadBodySmall reads at most SmallMaxBodySize bytes and never fails on
// length; it is used for error excerpts.
func ReadBodySmall(r io.Reader) []byte {
	if r == nil {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(r, SmallMaxBodySize))
	return data
}

// DrainAndClose reads any remaining data from r and closes it if it is a
// ReadCloser, so the connection can be reused.
// Always returns nil error to allow use in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}

	// Drain remaining data (limited to 64KB)
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))

	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
