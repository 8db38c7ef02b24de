package inference

import (
	"fmt"
	"time"

	apperrors "github.com/anime-shed/nutrivision-go/internal/errors"
)

// ErrorPrefix marks rendered failures so they stand out next to a normal analysis.
const ErrorPrefix = "⚠️ "

// Result is either the model's reply text or a typed error, never both.
type Result struct {
	Text        string
	Err         *apperrors.AppError
	Model       string
	Temperature float64
	Duration    time.Duration
	Usage       *Usage
}

// OK reports whether the analysis succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// String renders the result for display: the reply verbatim, or a marked error message.
func (r Result) String() string {
	if r.Err == nil {
		if r.Text == "" {
			return ErrorPrefix + "Error: MalformedResponse: empty analysis"
		}
		return r.Text
	}
	return RenderError(r.Err)
}

// RenderError formats an error the way it is shown to users.
func RenderError(err *apperrors.AppError) string {
	if err.Type == apperrors.ErrorTypeAPI {
		return fmt.Sprintf("%sAPI error %d: %s", ErrorPrefix, err.UpstreamStatus, err.Message)
	}

	msg := fmt.Sprintf("%sError: %s: %s", ErrorPrefix, kindLabel(err.Type), err.Message)
	if err.Cause != nil {
		msg += fmt.Sprintf(" (%v)", err.Cause)
	}
	return msg
}

func kindLabel(t apperrors.ErrorType) string {
	switch t {
	case apperrors.ErrorTypeConfiguration:
		return "ConfigurationError"
	case apperrors.ErrorTypeEncoding:
		return "EncodingError"
	case apperrors.ErrorTypeSizeExceeded:
		return "SizeExceeded"
	case apperrors.ErrorTypeTransport:
		return "TransportError"
	case apperrors.ErrorTypeTimeout:
		return "TransportError (timeout)"
	case apperrors.ErrorTypeMalformedResponse:
		return "MalformedResponse"
	case apperrors.ErrorTypeValidation:
		return "InvalidRequest"
	default:
		return string(t)
	}
}
