// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

/*
Package api exposes the recommendation engine over HTTP.

Routes:

	POST /api/v1/recommendations  rank candidates for a user
	POST /api/v1/feedback         report an outcome for a shown video
	GET  /api/v1/stats            engine statistics
	GET  /healthz                 liveness probe
	GET  /metrics                 Prometheus metrics

Every JSON response uses the same envelope:

	{
	  "success": true,
	  "data": { ... },
	  "meta": { "request_id": "...", "timestamp": "..." }
	}

Failures set success to false and carry an error object with a stable code
(VALIDATION_ERROR, INVALID_JSON, NO_CANDIDATES, SOURCE_UNAVAILABLE,
TIMEOUT, RATE_LIMITED, NOT_FOUND, METHOD_NOT_ALLOWED, INTERNAL_ERROR) and
the request ID for correlation with logs.

Requests are rate limited per client IP with go-chi/httprate and bodies are
capped at RouterConfig.MaxBodyBytes.
*/
package api
