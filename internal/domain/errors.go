package domain

import "fmt"

// AppError is a caller-facing failure with a stable code. The code surfaces
// verbatim in the error envelope; the message carries the detail.
type AppError struct {
	Code    string
	Message string
}

func (e AppError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is enables errors.Is matching on the code, so a sentinel still matches a
// copy carrying a detail message.
func (e AppError) Is(target error) bool {
	t, ok := target.(AppError)
	if !ok {
		p, ok := target.(*AppError)
		if !ok {
			return false
		}
		t = *p
	}
	return t.Code == e.Code
}

// WithMessage returns a copy with a different message and the same code.
func (e AppError) WithMessage(format string, args ...any) AppError {
	return AppError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidRequest       = AppError{Code: "InvalidRequest", Message: "malformed request"}
	ErrInvalidInviteCode    = AppError{Code: "InvalidInviteCode", Message: "invite code is missing, disabled, or exhausted"}
	ErrInvalidHandle        = AppError{Code: "InvalidHandle", Message: "handle syntax is invalid"}
	ErrHandleUnavailable    = AppError{Code: "HandleUnavailable", Message: "handle is reserved"}
	ErrUnsupportedDomain    = AppError{Code: "UnsupportedDomain", Message: "handle domain is not served by this node"}
	ErrHandleMismatch       = AppError{Code: "HandleMismatch", Message: "handle does not resolve to the supplied did"}
	ErrUnresolvableDid      = AppError{Code: "UnresolvableDid", Message: "did could not be resolved"}
	ErrIncompatibleDidDoc   = AppError{Code: "IncompatibleDidDoc", Message: "did document is not compatible with this node"}
	ErrAccountAlreadyExists = AppError{Code: "AccountAlreadyExists", Message: "account already exists"}
	ErrAuthenticationFailed = AppError{Code: "AuthenticationFailed", Message: "invalid identifier or password"}
	ErrAuthRequired         = AppError{Code: "AuthenticationRequired", Message: "authentication required"}
	ErrInvalidToken         = AppError{Code: "InvalidToken", Message: "token is invalid"}
	ErrExpiredToken         = AppError{Code: "ExpiredToken", Message: "token is expired"}
	ErrRepoNotFound         = AppError{Code: "RepoNotFound", Message: "no repository for the requested did"}
	ErrRateLimitExceeded    = AppError{Code: "RateLimitExceeded", Message: "rate limit exceeded"}
)
