package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrModelNotFound      = fmt.Errorf("model variant not found")
	ErrSessionNotFound    = fmt.Errorf("training session not found")
	ErrSampleNotFound     = fmt.Errorf("sample not found")
	ErrSnapshotNotFound   = fmt.Errorf("progress snapshot not found")

	// Streaming errors
	ErrProtocol       = fmt.Errorf("protocol violation")
	ErrTrainingFailed = fmt.Errorf("training failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
