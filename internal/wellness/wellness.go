// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

// Package wellness defines the closed label sets the recommender is keyed on.
//
// Emotions and categories arrive as free-form strings from the emotion
// classifier and from callers. Parsing never fails: unknown emotions map to
// Calm and unknown categories map to Yoga, so every request lands on a
// well-defined bandit key and context slot.
package wellness

import "strings"

// Emotion is a user's detected emotional state.
type Emotion string

// Supported emotions, in context-vector slot order.
const (
	Stressed  Emotion = "stressed"
	Sad       Emotion = "sad"
	Happy     Emotion = "happy"
	Anxious   Emotion = "anxious"
	Tired     Emotion = "tired"
	Motivated Emotion = "motivated"
	Calm      Emotion = "calm"
)

// Category is a wellness activity category.
type Category string

// Supported categories, in context-vector slot order.
const (
	Exercise   Category = "exercise"
	Yoga       Category = "yoga"
	Meditation Category = "meditation"
	Reading    Category = "reading"
)

var (
	emotions   = []Emotion{Stressed, Sad, Happy, Anxious, Tired, Motivated, Calm}
	categories = []Category{Exercise, Yoga, Meditation, Reading}
)

// Emotions returns the supported emotions in slot order.
func Emotions() []Emotion {
	out := make([]Emotion, len(emotions))
	copy(out, emotions)
	return out
}

// Categories returns the supported categories in slot order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// NumEmotions is the width of the emotion one-hot block.
const NumEmotions = 7

// NumCategories is the width of the category one-hot block.
const NumCategories = 4

// ParseEmotion normalizes a label. Unknown labels map to Calm.
func ParseEmotion(s string) Emotion {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	if e.Index() < 0 {
		return Calm
	}
	return e
}

// ParseCategory normalizes a label. Unknown labels map to Yoga.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Index() < 0 {
		return Yoga
	}
	return c
}

// Index returns the one-hot slot of e, or -1 when e is not a supported emotion.
func (e Emotion) Index() int {
	for i, v := range emotions {
		if v == e {
			return i
		}
	}
	return -1
}

// Index returns the one-hot slot of c, or -1 when c is not a supported category.
func (c Category) Index() int {
	for i, v := range categories {
		if v == c {
			return i
		}
	}
	return -1
}

// Valid reports whether e is one of the supported emotions.
func (e Emotion) Valid() bool { return e.Index() >= 0 }

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool { return c.Index() >= 0 }
