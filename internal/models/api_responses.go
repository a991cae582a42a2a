// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package models

import "time"

// APIResponse represents the standardized response wrapper used by all
// stage endpoints. It provides consistent structure for both successful
// and error responses, with metadata for observability.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability. QueryTimeMS is
// the server-side stage execution time in milliseconds.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError represents an error response with structured details.
// Message is always sanitized for end users; raw upstream error text is
// logged server-side but never placed here.
//
// Error codes used by the stage endpoints:
//   - MISSING_AUTH: No bearer credential supplied
//   - VALIDATION_ERROR: Request body failed validation
//   - INVALID_JSON: Request body is not valid JSON
//   - INVALID_SEED_ARTIST: Current track's artist ID is not a catalog ID
//   - MISSING_CURRENT_TRACK: Playback state carries no current track
//   - PIPELINE_ERROR: Acquisition or scoring failed with no partial result
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes returned by the stage endpoints.
const (
	ErrCodeMissingAuth         = "MISSING_AUTH"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeInvalidSeedArtist   = "INVALID_SEED_ARTIST"
	ErrCodeMissingCurrentTrack = "MISSING_CURRENT_TRACK"
	ErrCodePipeline            = "PIPELINE_ERROR"
)
