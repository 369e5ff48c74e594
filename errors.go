package vidpak

import "fmt"

// Kind classifies the errors vidpak returns (spec §7).
type Kind int

const (
	// KindMalformedFile covers a wrong magic, unknown version, truncated
	// header, or a malformed FSE block.
	KindMalformedFile Kind = iota
	// KindFrameNotPresent covers a requested frame index past the current
	// end-of-stream: a distinct out-of-range condition, not a malformed
	// file.
	KindFrameNotPresent
	// KindIoFailure covers an underlying filesystem error, including one
	// propagated from the worker goroutine.
	KindIoFailure
	// KindUsageError covers operating on a closed handle, invalid
	// geometry, a negative index, or a wrong-shaped frame buffer.
	KindUsageError
)

func (k Kind) String() string {
	switch k {
	case KindMalformedFile:
		return "malformed file"
	case KindFrameNotPresent:
		return "frame not present"
	case KindIoFailure:
		return "I/O failure"
	case KindUsageError:
		return "usage error"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by every exported vidpak operation. Op
// names the operation that failed (e.g. "vidpak.ReadFrame").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vidpak: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("vidpak: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error of the same Kind, so callers can
// write errors.Is(err, vidpak.ErrFrameNotPresent) without caring about Op
// or the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for use with errors.Is, one per Kind.
var (
	ErrMalformedFile   = &Error{Kind: KindMalformedFile}
	ErrFrameNotPresent = &Error{Kind: KindFrameNotPresent}
	ErrIoFailure       = &Error{Kind: KindIoFailure}
	ErrUsageError      = &Error{Kind: KindUsageError}
)

func malformedf(op, format string, args ...interface{}) error {
	return &Error{Kind: KindMalformedFile, Op: op, Err: fmt.Errorf(format, args...)}
}

func usagef(op, format string, args ...interface{}) error {
	return &Error{Kind: KindUsageError, Op: op, Err: fmt.Errorf(format, args...)}
}

func frameNotPresent(op string, index int) error {
	return &Error{Kind: KindFrameNotPresent, Op: op, Err: fmt.Errorf("frame %d does not exist", index)}
}

func ioFailure(op string, err error) error {
	return &Error{Kind: KindIoFailure, Op: op, Err: err}
}
