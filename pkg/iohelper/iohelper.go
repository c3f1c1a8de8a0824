// Package iohelper reads request and response bodies without letting an
// oversized body exhaust memory.
package iohelper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrTooLarge is returned by ReadCapped when the input exceeds the cap.
var ErrTooLarge = errors.New("iohelper: body exceeds size limit")

// drainLimit bounds how much of an unread body is discarded before close.
const drainLimit = 64 * 1024

// ReadBody reads at most maxSize bytes from r and silently drops the rest.
// A nil r yields an empty slice.
//
// Usage:
//
//	body, err := iohelper.ReadBody(resp.Body, defaults.MaxResponseSize)
//	defer iohelper.DrainAndClose(resp.Body)
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadCapped reads all of r, failing with ErrTooLarge instead of truncating
// when r holds more than maxSize bytes. Request bodies go through here:
// a truncated body would be parsed as a different document.
func ReadCapped(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxSize)
	}
	return data, nil
}

// ReadBodyOrLog is ReadBody that logs a read failure and returns whatever
// was read.
func ReadBodyOrLog(r io.Reader, maxSize int64, logger *slog.Logger) []byte {
	data, err := ReadBody(r, maxSize)
	if err != nil && logger != nil {
		logger.Warn("body read failed", slog.String("error", err.Error()))
	}
	return data
}

// DrainAndClose discards what is left of r and closes it if it is a
// ReadCloser, so the connection can be reused. It always returns nil so
// it can be deferred.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
