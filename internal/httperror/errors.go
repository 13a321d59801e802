package httperror

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tl-its-umich-edu/m-voice/internal/changes"
	"github.com/tl-its-umich-edu/m-voice/internal/dialog"
	"github.com/tl-its-umich-edu/m-voice/internal/menu"
	"github.com/tl-its-umich-edu/m-voice/internal/secrets"
	"github.com/tl-its-umich-edu/m-voice/internal/vocabulary"
)

// ErrorCode: the machine-readable API error code.
type ErrorCode string

const (
	ErrorCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorCodeHTTPRateLimit      ErrorCode = "HTTP_RATE_LIMIT"
	ErrorCodeUnknownIntent      ErrorCode = "UNKNOWN_INTENT"
	ErrorCodeUpstream           ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrorCodeUpstreamTimeout    ErrorCode = "UPSTREAM_TIMEOUT"
	ErrorCodeVocabulary         ErrorCode = "VOCABULARY_ERROR"
	ErrorCodeCredentialsMissing ErrorCode = "CREDENTIALS_MISSING"
)

type kind struct {
	status int
	name   string
}

var kinds = map[ErrorCode]kind{
	ErrorCodeInternal:           {http.StatusInternalServerError, "InternalError"},
	ErrorCodeValidation:         {http.StatusUnprocessableEntity, "ValidationError"},
	ErrorCodeUnauthorized:       {http.StatusUnauthorized, "UnauthorizedError"},
	ErrorCodeHTTPRateLimit:      {http.StatusTooManyRequests, "HTTPRateLimitExceededError"},
	ErrorCodeUnknownIntent:      {http.StatusBadRequest, "UnknownIntentError"},
	ErrorCodeUpstream:           {http.StatusBadGateway, "UpstreamError"},
	ErrorCodeUpstreamTimeout:    {http.StatusGatewayTimeout, "UpstreamTimeoutError"},
	ErrorCodeVocabulary:         {http.StatusInternalServerError, "VocabularyError"},
	ErrorCodeCredentialsMissing: {http.StatusServiceUnavailable, "CredentialsMissingError"},
}

// ErrorResponse: the JSON body of an API error.
type ErrorResponse struct {
	ErrorCode string         `json:"error_code"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	RequestID *string        `json:"request_id"`
	Details   map[string]any `json:"details"`
}

// Error: an API error carrying the status it is served with. Cause is the
// domain error it was mapped from and never reaches the response body.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

func newError(code ErrorCode, message string, details map[string]any, cause error) *Error {
	k, ok := kinds[code]
	if !ok {
		k = kinds[ErrorCodeInternal]
		code = ErrorCodeInternal
	}
	return &Error{Code: code, Status: k.status, Type: k.name, Message: message, Details: details, Cause: cause}
}

// Response: converts err into a status and body.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}

	body := ErrorResponse{
		ErrorCode: string(apiErr.Code),
		ErrorType: apiErr.Type,
		Message:   apiErr.Message,
		Details:   apiErr.Details,
	}
	if requestID != "" {
		body.RequestID = &requestID
	}
	return apiErr.Status, body
}

// mappers: tried in order; the first non-nil result wins.
var mappers = []func(error) *Error{
	func(err error) *Error {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return nil
	},
	func(err error) *Error {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(err)
		}
		return nil
	},
	func(err error) *Error {
		if errors.Is(err, context.DeadlineExceeded) {
			return newError(ErrorCodeUpstreamTimeout, "Upstream request timed out", nil, err)
		}
		return nil
	},
	func(err error) *Error {
		var menuErr *menu.FetchError
		if errors.As(err, &menuErr) {
			return NewUpstreamError("Menu service unavailable", map[string]any{"op": menuErr.Op, "status": menuErr.Status})
		}
		return nil
	},
	func(err error) *Error {
		var vocabErr *changes.FetchError
		if errors.As(err, &vocabErr) {
			return NewUpstreamError("Vocabulary service unavailable", map[string]any{
				"category": string(vocabErr.Category),
				"status":   vocabErr.Status,
			})
		}
		return nil
	},
	func(err error) *Error {
		switch {
		case errors.Is(err, dialog.ErrUnknownIntent):
			return newError(ErrorCodeUnknownIntent, err.Error(), nil, err)
		case errors.Is(err, vocabulary.ErrUnknownCategory):
			return newError(ErrorCodeVocabulary, "Vocabulary lookup failed", nil, err)
		case errors.Is(err, secrets.ErrNoCredentials):
			return newError(ErrorCodeCredentialsMissing, "Service credentials are not configured", nil, err)
		}
		return nil
	},
}

// FromError: maps domain errors to API errors. Anything unrecognised becomes a
// 500 whose message does not echo the underlying error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	for _, mapErr := range mappers {
		if apiErr := mapErr(err); apiErr != nil {
			return apiErr
		}
	}
	return newError(ErrorCodeInternal, "Internal server error", nil, err)
}

// NewInternalError: creates a 500 error.
func NewInternalError(message string) *Error {
	return newError(ErrorCodeInternal, message, nil, nil)
}

// NewValidationError: creates a 422 error listing the failed fields.
func NewValidationError(err error) *Error {
	return newError(ErrorCodeValidation, "Input validation failed", validationDetails(err), err)
}

func NewUnauthorized(details map[string]any) *Error {
	return newError(ErrorCodeUnauthorized, "Invalid credentials", details, nil)
}

func NewRateLimitExceeded(details map[string]any) *Error {
	return newError(ErrorCodeHTTPRateLimit, "Rate limit exceeded", details, nil)
}

func NewUpstreamError(message string, details map[string]any) *Error {
	return newError(ErrorCodeUpstream, message, details, nil)
}

// FieldError: describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]any{"errors": []FieldError{{Field: "body", Message: err.Error()}}}
	}

	fields := make([]FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fe.Error(), Value: fe.Value()})
	}
	return map[string]any{"errors": fields}
}
