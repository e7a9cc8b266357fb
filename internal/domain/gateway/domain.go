package gateway

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorCode string

const (
	CodeInvalidCredentials  ErrorCode = "invalid_credentials"
	CodeBalanceInsufficient ErrorCode = "balance_insufficient"
	CodeSenderRejected      ErrorCode = "sender_rejected"
	CodeTransport           ErrorCode = "transport_error"
	CodeMalformedResponse   ErrorCode = "malformed_response"
	CodeProvider            ErrorCode = "provider_error"
	CodeValidation          ErrorCode = "validation_error"
	CodeMissingCredentials  ErrorCode = "missing_credentials"
)

// Error is the normalized failure shape every adapter produces.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

func NewError(code ErrorCode, msg string) *Error { return &Error{Code: code, Message: msg} }

// SendResult is either a success carrying the raw provider response or a failure.
type SendResult struct {
	Response string
	Err      *Error
}

func Success(response string) SendResult { return SendResult{Response: response} }

func Failure(err *Error) SendResult { return SendResult{Err: err} }

func (r SendResult) OK() bool { return r.Err == nil }

type Message struct {
	From      string
	To        []string
	Body      string
	MediaURLs []string
}

type Credit struct {
	Value decimal.Decimal
	Raw   string
}

// SentEvent is emitted after every send attempt, successful or not.
type SentEvent struct {
	Gateway string
	EntryID string
	From    string
	To      []string
	Body    string
	Result  SendResult
	SentAt  time.Time
}
