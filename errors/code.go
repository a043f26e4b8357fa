package errors

// ErrorCode identifies an application error category in responses and logs
type ErrorCode int32

const (
	ErrorCode_HTTP_OK          ErrorCode = 0
	ErrorCode_INTERNAL         ErrorCode = 1
	ErrorCode_INVALID_ARGUMENT ErrorCode = 2
	ErrorCode_NOT_FOUND        ErrorCode = 3
	ErrorCode_ALREADY_EXISTS   ErrorCode = 4
	ErrorCode_PERMISSION_DENIED ErrorCode = 5
	ErrorCode_UNAUTHENTICATED  ErrorCode = 6
	ErrorCode_FORBIDDEN        ErrorCode = 7
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 8

	// Auth
	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = 100
	ErrorCode_AUTH_TOKEN_EXPIRED ErrorCode = 101

	// Database
	ErrorCode_DB_QUERY_FAILED       ErrorCode = 200
	ErrorCode_DB_TRANSACTION_FAILED ErrorCode = 201

	// Audio generation
	ErrorCode_GENERATION_FAILED    ErrorCode = 300
	ErrorCode_GENERATION_CANCELLED ErrorCode = 301
	ErrorCode_AUDIO_NOT_READY      ErrorCode = 302
	ErrorCode_SCRIPT_FAILED        ErrorCode = 303

	// HLS conversion
	ErrorCode_HLS_CONVERSION_FAILED ErrorCode = 400
	ErrorCode_HLS_NOT_READY         ErrorCode = 401

	// Novel ingestion
	ErrorCode_UPLOAD_FAILED    ErrorCode = 500
	ErrorCode_EMPTY_CHAPTER    ErrorCode = 501
	ErrorCode_INVALID_ENCODING ErrorCode = 502
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:               "HTTP_OK",
	ErrorCode_INTERNAL:              "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:      "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:             "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:        "ALREADY_EXISTS",
	ErrorCode_PERMISSION_DENIED:     "PERMISSION_DENIED",
	ErrorCode_UNAUTHENTICATED:       "UNAUTHENTICATED",
	ErrorCode_FORBIDDEN:             "FORBIDDEN",
	ErrorCode_INVALID_PAYLOAD:       "INVALID_PAYLOAD",
	ErrorCode_AUTH_INVALID_TOKEN:    "AUTH_INVALID_TOKEN",
	ErrorCode_AUTH_TOKEN_EXPIRED:    "AUTH_TOKEN_EXPIRED",
	ErrorCode_DB_QUERY_FAILED:       "DB_QUERY_FAILED",
	ErrorCode_DB_TRANSACTION_FAILED: "DB_TRANSACTION_FAILED",
	ErrorCode_GENERATION_FAILED:     "GENERATION_FAILED",
	ErrorCode_GENERATION_CANCELLED:  "GENERATION_CANCELLED",
	ErrorCode_AUDIO_NOT_READY:       "AUDIO_NOT_READY",
	ErrorCode_SCRIPT_FAILED:         "SCRIPT_FAILED",
	ErrorCode_HLS_CONVERSION_FAILED: "HLS_CONVERSION_FAILED",
	ErrorCode_HLS_NOT_READY:         "HLS_NOT_READY",
	ErrorCode_UPLOAD_FAILED:         "UPLOAD_FAILED",
	ErrorCode_EMPTY_CHAPTER:         "EMPTY_CHAPTER",
	ErrorCode_INVALID_ENCODING:      "INVALID_ENCODING",
}

// String returns the symbolic name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
