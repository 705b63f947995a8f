package minutes

import "errors"

var (
	ErrAcquisition       = errors.New("transcript acquisition failed")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidField      = errors.New("invalid field")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrMappingKeyUnknown = errors.New("unknown speaker label")
)
