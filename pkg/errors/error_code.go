package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidThreshold     ErrorCode = 103
	ErrCodeInvalidTimeWindow    ErrorCode = 104

	// Data errors (200-299)
	ErrCodeDataIntegrity    ErrorCode = 200
	ErrCodeDataNotFound     ErrorCode = 201
	ErrCodeCacheReadFailed  ErrorCode = 202
	ErrCodeCacheWriteFailed ErrorCode = 203
	ErrCodeFetchFailed      ErrorCode = 204
	ErrCodeQueryFailed      ErrorCode = 205

	// Strategy errors (400-499)
	ErrCodeUnknownStrategy    ErrorCode = 400
	ErrCodeStrategyConfig     ErrorCode = 401
	ErrCodeInsufficientData   ErrorCode = 402
	ErrCodeSignalShapeInvalid ErrorCode = 403

	// Simulation errors (500-599)
	ErrCodeInvalidPrice    ErrorCode = 500
	ErrCodeSimulationState ErrorCode = 501

	// Rendering errors (600-699)
	ErrCodeRenderingFailure ErrorCode = 600
	ErrCodeReportWriteFail  ErrorCode = 601
)
