package model

// BasicResponse is the relay's admin API envelope.
type BasicResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

const (
	SuccessCode = "ok"
	ErrorCode   = "error"
)

// Success wraps data with a success code.
func Success(msg string, data any) BasicResponse {
	return BasicResponse{Code: SuccessCode, Msg: msg, Data: data}
}

// Error returns a BasicResponse with the error code.
func Error(msg string) BasicResponse {
	return BasicResponse{Code: ErrorCode, Msg: msg}
}
