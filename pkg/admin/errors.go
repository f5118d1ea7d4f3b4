package admin

import "errors"

var (
	ErrInspectorNil = errors.New("admin: inspector cannot be nil")
	ErrInvalidID    = errors.New("admin: invalid job id")
	ErrInvalidLimit = errors.New("admin: invalid limit")
	ErrInvalidBody  = errors.New("admin: invalid request body")
	ErrNotEnabled   = errors.New("admin: endpoint not enabled")
	ErrInvalidURL   = errors.New("admin: invalid base URL")
)

// Error codes carried in ErrorDetail.Code.
const (
	CodeNotFound       = "job_not_found"
	CodeNotFailed      = "job_not_failed"
	CodeInvalidID      = "invalid_id"
	CodeInvalidLimit   = "invalid_limit"
	CodeInvalidBody    = "invalid_body"
	CodeInvalidPayload = "invalid_payload"
	CodeUnknownType    = "unknown_job_type"
	CodeNotEnabled     = "not_enabled"
	CodeInternal       = "internal_error"
)
