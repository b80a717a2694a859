// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide. It caches struct
// metadata, reports fields by their JSON names and registers one custom tag:
//
//   - finite: rejects NaN and ±Inf floats. Works with dive on float slices.
//
// # Usage
//
//	type FeedbackRequest struct {
//	    UserID        string    `json:"user_id" validate:"required,max=256"`
//	    ContextVector []float64 `json:"context_vector" validate:"dive,finite"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// ValidateStruct returns a typed *RequestValidationError. Compare it to nil
// before converting it to the error interface.
package validation
