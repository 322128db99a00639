package dicom

import (
	"errors"
	"fmt"
)

// Reason classifies a decode failure. Only ReasonOther allows the manual
// fallback path.
type Reason int

const (
	ReasonOther Reason = iota
	ReasonUnsupported
	ReasonTransferSyntax
	ReasonMalformed
)

func (r Reason) String() string {
	switch r {
	case ReasonUnsupported:
		return "unsupported"
	case ReasonTransferSyntax:
		return "transfer_syntax"
	case ReasonMalformed:
		return "malformed"
	default:
		return "other"
	}
}

type DecodeError struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("dicom %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("dicom %s (%s): %v", e.Op, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func newDecodeError(reason Reason, op string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Op: op, Err: err}
}

// CodecInitError means the pixel codec could not be brought up. It is sticky
// for the lifetime of the codec and never triggers a fallback.
type CodecInitError struct {
	Err error
}

func (e *CodecInitError) Error() string {
	return fmt.Sprintf("dicom codec init: %v", e.Err)
}

func (e *CodecInitError) Unwrap() error { return e.Err }

var (
	ErrEncapsulated = errors.New("pixel data is encapsulated")
	ErrNoPixelData  = errors.New("no pixel data")
	ErrBitsAlloc    = errors.New("bits allocated must be 8 or 16")
)

// ReasonOf extracts the reason of a *DecodeError anywhere in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return ReasonOther, false
}

func fallbackAllowed(err error) bool {
	var initErr *CodecInitError
	if errors.As(err, &initErr) {
		return false
	}
	reason, ok := ReasonOf(err)
	if !ok {
		return true
	}
	return reason == ReasonOther
}
