package errors

import (
	"errors"
	"fmt"
	"net/http"

	"igproxy/pkg/instagram"
)

// Kind classifies a scraping failure into a stable category
type Kind string

const (
	KindBadCredentials      Kind = "bad_credentials"
	KindTwoFactorRequired   Kind = "two_factor_required"
	KindChallengePending    Kind = "challenge_pending"
	KindConnectivityFailure Kind = "connectivity_failure"
	KindProfileNotFound     Kind = "profile_not_found"
	KindContentNotFound     Kind = "content_not_found"
	KindUpstreamRejected    Kind = "upstream_rejected"
	KindUnknown             Kind = "unknown"
)

// ScrapeError is the stable error contract exposed by the orchestrator
type ScrapeError struct {
	Kind    Kind
	Message string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates a ScrapeError with the given kind and message
func New(kind Kind, message string) *ScrapeError {
	return &ScrapeError{Kind: kind, Message: message}
}

// Newf creates a ScrapeError with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *ScrapeError {
	return &ScrapeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from an error chain, defaulting to unknown
func KindOf(err error) Kind {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a classification to its HTTP status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadCredentials, KindTwoFactorRequired, KindChallengePending:
		return http.StatusUnauthorized
	case KindConnectivityFailure:
		return http.StatusServiceUnavailable
	case KindProfileNotFound, KindContentNotFound:
		return http.StatusNotFound
	case KindUpstreamRejected:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the user-visible error detail for a classification
func Detail(kind Kind) string {
	switch kind {
	case KindBadCredentials:
		return "Invalid credentials"
	case KindTwoFactorRequired:
		return "2FA required but flag not provided"
	case KindChallengePending:
		return "2FA challenge pending"
	case KindConnectivityFailure:
		return "Service Unavailable"
	case KindProfileNotFound:
		return "Profile not found"
	case KindContentNotFound:
		return "Content not found"
	case KindUpstreamRejected:
		return "Bad Request"
	default:
		return "Internal Server Error"
	}
}

// Classify translates a platform client error into the stable taxonomy.
// Errors that are already classified pass through unchanged.
func Classify(err error) *ScrapeError {
	if err == nil {
		return nil
	}

	var se *ScrapeError
	if errors.As(err, &se) {
		return se
	}

	var igErr *instagram.Error
	if errors.As(err, &igErr) {
		switch igErr.Type {
		case instagram.ErrorTypeAuth:
			return New(KindBadCredentials, igErr.Message)
		case instagram.ErrorTypeTwoFactor:
			return New(KindTwoFactorRequired, igErr.Message)
		case instagram.ErrorTypeNotFound:
			return New(KindProfileNotFound, igErr.Message)
		case instagram.ErrorTypeNetwork, instagram.ErrorTypeServerError:
			return New(KindConnectivityFailure, igErr.Message)
		case instagram.ErrorTypeRateLimit, instagram.ErrorTypeBadRequest, instagram.ErrorTypeParsing:
			return New(KindUpstreamRejected, igErr.Message)
		}
	}

	return New(KindUnknown, err.Error())
}
