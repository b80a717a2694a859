// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type testState struct {
	Version int
	Weights []float64
	Labels  map[string]int
	SavedAt time.Time
}

func sampleState(v int) testState {
	return testState{
		Version: v,
		Weights: []float64{0.5, -1.25, 3},
		Labels:  map[string]int{"calm": 1, "anxious": 2},
		SavedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestEncodeDecode(t *testing.T) {
	data, meta, err := Encode(sampleState(3))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if meta.FormatVersion != FormatVersion {
		t.Errorf("FormatVersion = %d, want %d", meta.FormatVersion, FormatVersion)
	}
	if len(meta.Checksum) != 64 {
		t.Errorf("Checksum length = %d, want 64", len(meta.Checksum))
	}

	var got testState
	if _, err := Decode(data, &got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Version != 3 || got.Labels["anxious"] != 2 || got.Weights[1] != -1.25 {
		t.Errorf("Decode() = %+v", got)
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	var got testState
	_, err := Decode([]byte("not a snapshot"), &got)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("Decode(garbage) error = %v, want ErrCorruptSnapshot", err)
	}
}

func TestDecodeDetectsChecksumMismatch(t *testing.T) {
	data, _, err := Encode(sampleState(1))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	other, _, err := Encode(sampleState(2))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Swap payloads: the checksum from the first envelope no longer matches.
	first, second := readEnvelope(t, data), readEnvelope(t, other)
	first.CompressedData = second.CompressedData
	tampered := writeEnvelope(t, first)

	var got testState
	if _, err := Decode(tampered, &got); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("Decode(tampered) error = %v, want ErrChecksumMismatch", err)
	}
}

func TestErrSnapshotNotFoundWrapsNotExist(t *testing.T) {
	if !errors.Is(ErrSnapshotNotFound, fs.ErrNotExist) {
		t.Fatal("ErrSnapshotNotFound should wrap fs.ErrNotExist")
	}
}

func openBackends(t *testing.T) map[string]Backend {
	t.Helper()
	ctx := context.Background()

	file, err := NewFileBackend(t.TempDir(), 2)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	bdg, err := OpenBadgerBackend("")
	if err != nil {
		t.Fatalf("OpenBadgerBackend() error = %v", err)
	}
	sqlite, err := OpenSQLiteBackend(ctx, ":memory:", 2)
	if err != nil {
		t.Fatalf("OpenSQLiteBackend() error = %v", err)
	}

	backends := map[string]Backend{
		"file":   file,
		"badger": bdg,
		"sqlite": sqlite,
		"memory": NewMemoryBackend(),
	}
	t.Cleanup(func() {
		for _, b := range backends {
			_ = b.Close()
		}
	})
	return backends
}

func TestBackendsRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, backend := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := NewStore(backend, zerolog.Nop())

			var empty testState
			if err := store.Load(ctx, &empty); !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("Load() on empty backend error = %v, want fs.ErrNotExist", err)
			}

			for v := 1; v <= 3; v++ {
				if err := store.Save(ctx, sampleState(v)); err != nil {
					t.Fatalf("Save(v%d) error = %v", v, err)
				}
			}

			var got testState
			if err := store.Load(ctx, &got); err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got.Version != 3 {
				t.Errorf("Load() version = %d, want latest 3", got.Version)
			}
			if store.Name() != name {
				t.Errorf("Name() = %q, want %q", store.Name(), name)
			}
		})
	}
}

func TestFileBackendPrunesAndResumes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := NewFileBackend(dir, 2)
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := backend.Save(ctx, []byte{byte(i)}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 {
		t.Fatalf("files = %v, want 2 retained versions", names)
	}
	if _, err := os.Stat(filepath.Join(dir, "snapshot_v4.gob.gz")); err != nil {
		t.Errorf("latest version missing: %v", err)
	}

	reopened, err := NewFileBackend(dir, 2)
	if err != nil {
		t.Fatalf("NewFileBackend(reopen) error = %v", err)
	}
	if reopened.Version() != 4 {
		t.Errorf("Version() after reopen = %d, want 4", reopened.Version())
	}
	data, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(data) != 1 || data[0] != 3 {
		t.Errorf("Load() = %v, want [3]", data)
	}
}

func TestParseSnapshotFilename(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"snapshot_v1.gob.gz", 1, true},
		{"snapshot_v42.gob.gz", 42, true},
		{"snapshot_v0.gob.gz", 0, false},
		{"snapshot_vx.gob.gz", 0, false},
		{"snapshot_v3.gob", 0, false},
		{".snapshot-123.tmp", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSnapshotFilename(tt.name)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("parseSnapshotFilename(%q) = (%d, %v), want (%d, %v)", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSQLiteBackendRetention(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenSQLiteBackend(ctx, filepath.Join(t.TempDir(), "db", "snapshots.db"), 3)
	if err != nil {
		t.Fatalf("OpenSQLiteBackend() error = %v", err)
	}
	defer backend.Close()

	for i := 0; i < 5; i++ {
		if err := backend.Save(ctx, []byte{byte(i)}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	n, err := backend.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
	data, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if data[0] != 4 {
		t.Errorf("Load() = %v, want newest row", data)
	}
}

func TestBadgerBackendSequence(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenBadgerBackend("")
	if err != nil {
		t.Fatalf("OpenBadgerBackend() error = %v", err)
	}
	defer backend.Close()

	seq, err := backend.Sequence()
	if err != nil || seq != 0 {
		t.Fatalf("Sequence() on empty db = (%d, %v), want (0, nil)", seq, err)
	}
	for i := 0; i < 3; i++ {
		if err := backend.Save(ctx, []byte("x")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if seq, _ := backend.Sequence(); seq != 3 {
		t.Errorf("Sequence() = %d, want 3", seq)
	}
}

func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("SANCTUARY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SANCTUARY_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	backend, err := NewRedisBackend(ctx, RedisOptions{Addr: addr, Key: "sanctuary:test:" + t.Name()})
	if err != nil {
		t.Fatalf("NewRedisBackend() error = %v", err)
	}
	defer backend.Close()
	defer backend.client.Del(ctx, backend.key)

	if _, err := backend.Load(ctx); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("Load() on empty key error = %v", err)
	}
	if err := backend.Save(ctx, []byte("payload")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := backend.Load(ctx)
	if err != nil || string(data) != "payload" {
		t.Errorf("Load() = (%q, %v)", data, err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Backend: "memory"}, false},
		{"file", Config{Backend: "file", Path: "/tmp/x"}, false},
		{"file without path", Config{Backend: "file"}, true},
		{"sqlite without path", Config{Backend: "sqlite"}, true},
		{"redis", Config{Backend: "redis", Redis: RedisConfig{Addr: "localhost:6379"}}, false},
		{"redis without addr", Config{Backend: "redis"}, true},
		{"unknown", Config{Backend: "s3"}, true},
		{"negative keep", Config{Backend: "memory", Keep: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Backend: "memory"}, "memory"},
		{Config{Backend: "file", Path: filepath.Join(dir, "files"), Keep: 2}, "file"},
		{Config{Backend: "sqlite", Path: filepath.Join(dir, "sql")}, "sqlite"},
		{Config{Backend: "badger", Path: filepath.Join(dir, "badger")}, "badger"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			backend, err := Open(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer backend.Close()
			if backend.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", backend.Name(), tt.want)
			}
		})
	}

	if _, err := Open(ctx, Config{Backend: "s3"}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open(s3) error = %v, want ErrUnknownBackend", err)
	}
}
