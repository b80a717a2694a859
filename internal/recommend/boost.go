// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

package recommend

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/sanctuary/internal/metrics"
	"github.com/tomtom215/sanctuary/internal/wellness"
)

// BoostRule adds Boost to every candidate for which Expr evaluates to true.
//
// Expressions see three variables:
//
//	candidate  map with id, title, channel, source, views, likes,
//	           subscribers, duration_minutes, days_ago, channel_verified
//	emotion    resolved emotion label
//	category   resolved category label
//
// Example: `candidate.channel_verified && candidate.views > 1000000.0`.
type BoostRule struct {
	Name  string  `json:"name" koanf:"name"`
	Expr  string  `json:"expr" koanf:"expr"`
	Boost float64 `json:"boost" koanf:"boost"`
}

type compiledRule struct {
	rule    BoostRule
	program cel.Program
}

// Booster evaluates compiled boost rules.
type Booster struct {
	rules  []compiledRule
	logger zerolog.Logger
}

// NewBooster compiles the rules. It fails on the first rule that does not
// compile or cannot produce a boolean.
//
//nolint:gocritic // zerolog.Logger is passed by value, matching the rest of the codebase
func NewBooster(rules []BoostRule, logger zerolog.Logger) (*Booster, error) {
	b := &Booster{logger: logger.With().Str("component", "boost").Logger()}
	if len(rules) == 0 {
		return b, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("candidate", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("emotion", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create boost rule environment: %w", err)
	}

	for _, r := range rules {
		if r.Boost < 0 {
			return nil, fmt.Errorf("boost rule %q: boost must be >= 0, got %v", r.Name, r.Boost)
		}
		ast, iss := env.Compile(r.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("compile boost rule %q: %w", r.Name, iss.Err())
		}
		out := ast.OutputType()
		if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("boost rule %q: expression must be boolean, got %s", r.Name, out)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("program boost rule %q: %w", r.Name, err)
		}
		b.rules = append(b.rules, compiledRule{rule: r, program: prg})
	}
	return b, nil
}

// Len returns the number of compiled rules.
func (b *Booster) Len() int {
	return len(b.rules)
}

// Boost returns the sum of boosts of all matching rules. Rules that fail to
// evaluate or return a non-boolean are skipped.
func (b *Booster) Boost(c *Candidate, emotion wellness.Emotion, category wellness.Category) float64 {
	if len(b.rules) == 0 {
		return 0
	}

	vars := map[string]any{
		"candidate": candidateVars(c),
		"emotion":   string(emotion),
		"category":  string(category),
	}

	var total float64
	for _, r := range b.rules {
		out, _, err := r.program.Eval(vars)
		if err != nil {
			metrics.RecordBoostRuleError(r.rule.Name)
			b.logger.Debug().Err(err).Str("rule", r.rule.Name).Str("candidate_id", c.ID).Msg("Boost rule evaluation failed")
			continue
		}
		match, ok := out.Value().(bool)
		if !ok {
			metrics.RecordBoostRuleError(r.rule.Name)
			continue
		}
		if match {
			total += r.rule.Boost
		}
	}
	return total
}

func candidateVars(c *Candidate) map[string]any {
	verified := false
	if c.ChannelVerified != nil {
		verified = *c.ChannelVerified
	}
	return map[string]any{
		"id":               c.ID,
		"title":            c.Title,
		"channel":          c.Channel,
		"source":           c.Source,
		"views":            valueOr(c.Views, 0),
		"likes":            valueOr(c.Likes, 0),
		"subscribers":      valueOr(c.ChannelSubscribers, 0),
		"duration_minutes": valueOr(c.DurationMinutes, defaultDurationMinutes),
		"days_ago":         valueOr(c.PublishedDaysAgo, defaultPublishedDaysAgo),
		"channel_verified": verified,
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
