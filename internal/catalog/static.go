// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/sanctuary/internal/recommend"
	"github.com/tomtom215/sanctuary/internal/wellness"
)

// ErrEmptyCatalog is returned when a catalog file lists no videos.
var ErrEmptyCatalog = errors.New("catalog contains no videos")

// Entry is a catalog video with its wellness tags.
type Entry struct {
	recommend.Candidate `yaml:",inline"`

	Categories []string `yaml:"categories"`
	Emotions   []string `yaml:"emotions"`
}

type catalogFile struct {
	Videos []Entry `yaml:"videos"`
}

// StaticSource serves candidates from an in-memory catalog.
type StaticSource struct {
	name    string
	entries []entry
}

type entry struct {
	candidate  recommend.Candidate
	categories map[wellness.Category]struct{}
	emotions   map[wellness.Emotion]struct{}
	text       string
}

// LoadStaticSource reads a YAML catalog file. The source is named after the
// file without its extension.
func LoadStaticSource(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path) //nolint:gosec // catalog paths come from configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	base := filepath.Base(path)
	return ParseStaticSource(strings.TrimSuffix(base, filepath.Ext(base)), data)
}

// ParseStaticSource parses a YAML catalog document.
func ParseStaticSource(name string, data []byte) (*StaticSource, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if len(file.Videos) == 0 {
		return nil, ErrEmptyCatalog
	}
	return NewStaticSource(name, file.Videos)
}

// NewStaticSource builds a source from entries. Entry IDs must be unique and
// tags must be known labels.
func NewStaticSource(name string, entries []Entry) (*StaticSource, error) {
	s := &StaticSource{name: name, entries: make([]entry, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))

	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			return nil, fmt.Errorf("catalog video %d: id is required", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("catalog video %q: duplicate id", e.ID)
		}
		seen[e.ID] = struct{}{}

		compiled := entry{
			candidate: e.Candidate,
			text:      strings.ToLower(e.Title + " " + e.Channel),
		}
		if len(e.Categories) > 0 {
			compiled.categories = make(map[wellness.Category]struct{}, len(e.Categories))
			for _, label := range e.Categories {
				c := wellness.Category(strings.ToLower(strings.TrimSpace(label)))
				if !c.Valid() {
					return nil, fmt.Errorf("catalog video %q: unknown category %q", e.ID, label)
				}
				compiled.categories[c] = struct{}{}
			}
		}
		if len(e.Emotions) > 0 {
			compiled.emotions = make(map[wellness.Emotion]struct{}, len(e.Emotions))
			for _, label := range e.Emotions {
				em := wellness.Emotion(strings.ToLower(strings.TrimSpace(label)))
				if !em.Valid() {
					return nil, fmt.Errorf("catalog video %q: unknown emotion %q", e.ID, label)
				}
				compiled.emotions[em] = struct{}{}
			}
		}
		s.entries = append(s.entries, compiled)
	}
	return s, nil
}

// Name implements recommend.CandidateSource.
func (s *StaticSource) Name() string { return s.name }

// Len returns the catalog size.
func (s *StaticSource) Len() int { return len(s.entries) }

// Fetch returns catalog videos tagged for the query's category and emotion.
// Videos whose title or channel mention a query keyword come first; catalog
// order is kept otherwise.
func (s *StaticSource) Fetch(ctx context.Context, q recommend.Query) ([]recommend.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type match struct {
		hits      int
		candidate recommend.Candidate
	}
	var matches []match
	for i := range s.entries {
		e := &s.entries[i]
		if !e.matches(q.Category, q.Emotion) {
			continue
		}
		c := e.candidate
		c.Source = s.name
		matches = append(matches, match{hits: e.keywordHits(q.Keywords), candidate: c})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].hits > matches[j].hits
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	out := make([]recommend.Candidate, len(matches))
	for i := range matches {
		out[i] = matches[i].candidate
	}
	return out, nil
}

func (e *entry) matches(c wellness.Category, em wellness.Emotion) bool {
	if e.categories != nil {
		if _, ok := e.categories[c]; !ok {
			return false
		}
	}
	if e.emotions != nil {
		if _, ok := e.emotions[em]; !ok {
			return false
		}
	}
	return true
}

func (e *entry) keywordHits(keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(e.text, kw) {
			hits++
		}
	}
	return hits
}
