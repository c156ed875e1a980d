package notifyclient

import (
	"errors"
	"fmt"
	"math"
)

// StatusUnknown marks a Response whose outcome could not be determined.
const StatusUnknown = math.MinInt32

// Response models the notify endpoint's JSON reply.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

func unknownResponse() Response {
	return Response{Status: StatusUnknown}
}

// Known reports whether the remote service actually reported a status.
func (r Response) Known() bool {
	return r.Status != StatusUnknown
}

// OK reports whether the remote service accepted the notification.
func (r Response) OK() bool {
	return r.Status == 200
}

// Reason classifies why a send produced no usable Response.
type Reason int

const (
	// ReasonUnclassifiedStatus means the HTTP status was outside 200/400/401/500,
	// so the body was not decoded.
	ReasonUnclassifiedStatus Reason = iota + 1
	// ReasonTransport covers connection and I/O failures.
	ReasonTransport
	// ReasonCanceled means the context ended before the exchange resolved.
	ReasonCanceled
	// ReasonDecode means the body of a classified reply was not valid JSON.
	ReasonDecode
	// ReasonRequest means the request itself could not be built.
	ReasonRequest
)

func (r Reason) String() string {
	switch r {
	case ReasonUnclassifiedStatus:
		return "unclassified_status"
	case ReasonTransport:
		return "transport"
	case ReasonCanceled:
		return "canceled"
	case ReasonDecode:
		return "decode"
	case ReasonRequest:
		return "request"
	default:
		return "unknown"
	}
}

// SendError accompanies a StatusUnknown Response.
type SendError struct {
	Reason     Reason
	HTTPStatus int
	Err        error
}

func (e *SendError) Error() string {
	switch {
	case e.Err != nil && e.HTTPStatus != 0:
		return fmt.Sprintf("notify %s (http %d): %v", e.Reason, e.HTTPStatus, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("notify %s: %v", e.Reason, e.Err)
	case e.HTTPStatus != 0:
		return fmt.Sprintf("notify %s (http %d)", e.Reason, e.HTTPStatus)
	default:
		return fmt.Sprintf("notify %s", e.Reason)
	}
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from err, or 0 when err is not a *SendError.
func ReasonOf(err error) Reason {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Reason
	}
	return 0
}
