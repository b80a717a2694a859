// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// FormatVersion is the current envelope layout version.
const FormatVersion = 1

// Codec errors.
var (
	ErrCorruptSnapshot  = errors.New("corrupt snapshot")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)

// Metadata describes an encoded snapshot.
type Metadata struct {
	// FormatVersion is the envelope layout version.
	FormatVersion int `json:"format_version"`

	// SavedAt is when the snapshot was encoded.
	SavedAt time.Time `json:"saved_at"`

	// Checksum is the hex SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// RawBytes and SizeBytes are the payload size before and after
	// compression.
	RawBytes  int64 `json:"raw_bytes"`
	SizeBytes int64 `json:"size_bytes"`
}

// envelope is the encoded form written to backends.
type envelope struct {
	Metadata       Metadata
	CompressedData []byte
}

// Encode serializes v with gob, checksums it and gzips it into an envelope.
func Encode(v any) ([]byte, Metadata, error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(v); err != nil {
		return nil, Metadata{}, fmt.Errorf("encode snapshot: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, Metadata{}, fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, Metadata{}, fmt.Errorf("finalize compression: %w", err)
	}

	meta := Metadata{
		FormatVersion: FormatVersion,
		SavedAt:       time.Now().UTC(),
		Checksum:      hex.EncodeToString(hash[:]),
		RawBytes:      int64(raw.Len()),
		SizeBytes:     int64(compressed.Len()),
	}

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(envelope{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return nil, Metadata{}, fmt.Errorf("write envelope: %w", err)
	}
	return out.Bytes(), meta, nil
}

// Decode verifies an envelope and decodes its payload into target.
func Decode(data []byte, target any) (Metadata, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return Metadata{}, fmt.Errorf("%w: read envelope: %v", ErrCorruptSnapshot, err)
	}
	if env.Metadata.FormatVersion != FormatVersion {
		return Metadata{}, fmt.Errorf("%w: format version %d, want %d", ErrCorruptSnapshot, env.Metadata.FormatVersion, FormatVersion)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.CompressedData))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: decompress: %v", ErrCorruptSnapshot, err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: read decompressed data: %v", ErrCorruptSnapshot, err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != env.Metadata.Checksum {
		return Metadata{}, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, env.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return Metadata{}, fmt.Errorf("%w: decode payload: %v", ErrCorruptSnapshot, err)
	}
	return env.Metadata, nil
}
