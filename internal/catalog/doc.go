// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

/*
Package catalog provides candidate sources for the recommendation engine.

A source answers a recommend.Query with raw candidate videos. The engine only
queries a source when a request carries no candidates of its own.

# Sources

  - StaticSource: a curated YAML catalog, each video tagged with the wellness
    categories and emotions it suits
  - Fanout: queries several sources concurrently and merges their results

# Catalog Format

	videos:
	  - id: yt-4pLUleLdwY4
	    title: 10 Minute Morning Yoga
	    channel: Yoga With Adriene
	    views: 12000000
	    likes: 240000
	    duration_minutes: 10
	    published_days_ago: 400
	    categories: [yoga]
	    emotions: [sad, neutral]

Videos with no categories (or no emotions) match every category (or emotion).

# Fanout Semantics

Results keep source order. A video returned by more than one source is kept
once, from the first source that returned it. A failing or slow source is
logged and skipped; Fetch only fails when every source fails.
*/
package catalog
