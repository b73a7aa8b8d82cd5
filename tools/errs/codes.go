package errs

// Error codes grouped by failure class: auth, validation, storage, transport,
// bridge, queue. REST handlers and the realtime gateway share these.
const (
	CodeUnauthorized    = 1001
	CodeTokenExpired    = 1002
	CodeValidation      = 2001
	CodeRecordNotFound  = 3001
	CodeRecordConflict  = 3002
	CodeForbidden       = 3003
	CodeBridgeFailure   = 4001
	CodeTransportClosed = 4002
	CodeQueueFailure    = 5001
)

var (
	ErrUnauthorized   = NewCodeError(CodeUnauthorized, "unauthorized")
	ErrTokenExpired   = NewCodeError(CodeTokenExpired, "token expired")
	ErrValidation     = NewCodeError(CodeValidation, "invalid payload")
	ErrRecordNotFound = NewCodeError(CodeRecordNotFound, "record not found")
	ErrRecordConflict = NewCodeError(CodeRecordConflict, "record already exists")
	ErrForbidden      = NewCodeError(CodeForbidden, "access denied")
	ErrBridgeFailure  = NewCodeError(CodeBridgeFailure, "bridge publish failed")
	ErrQueueFailure   = NewCodeError(CodeQueueFailure, "job queue unavailable")
)
