package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for each failure kind. Every error returned by a load wraps exactly one of them,
// so callers can test with errors.Is.
var (
	ErrMalformedContainer       = errors.New("malformed container")
	ErrUnsupportedGltfVersion   = errors.New("unsupported glTF version")
	ErrMissingBufferSource      = errors.New("missing buffer source")
	ErrUnsupportedComponentType = errors.New("unsupported component type")
	ErrFetchFailure             = errors.New("fetch failure")
	ErrInvalidAsset             = errors.New("invalid asset")
)

// ErrorKind classifies a load failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMalformedContainer
	KindUnsupportedGltfVersion
	KindMissingBufferSource
	KindUnsupportedComponentType
	KindFetchFailure
	KindInvalidAsset
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedContainer:
		return "MalformedContainer"
	case KindUnsupportedGltfVersion:
		return "UnsupportedGltfVersion"
	case KindMissingBufferSource:
		return "MissingBufferSource"
	case KindUnsupportedComponentType:
		return "UnsupportedComponentType"
	case KindFetchFailure:
		return "FetchFailure"
	case KindInvalidAsset:
		return "InvalidAsset"
	default:
		return "Unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMalformedContainer:
		return ErrMalformedContainer
	case KindUnsupportedGltfVersion:
		return ErrUnsupportedGltfVersion
	case KindMissingBufferSource:
		return ErrMissingBufferSource
	case KindUnsupportedComponentType:
		return ErrUnsupportedComponentType
	case KindFetchFailure:
		return ErrFetchFailure
	case KindInvalidAsset:
		return ErrInvalidAsset
	default:
		return nil
	}
}

// LoadError describes a load failure: its kind, the offending field and, for container
// errors, the expected and found values.
type LoadError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Field names what was being read ("magic", "buffers[2]", "accessor 7").
	Field string

	// Expected and Found are set when a value failed a check.
	Expected string
	Found    string

	// Err is the underlying cause, if any.
	Err error
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Field != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Field)
	}
	if e.Expected != "" || e.Found != "" {
		fmt.Fprintf(&sb, ": expected %s, found %s", e.Expected, e.Found)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is and errors.As.
func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the kind of a load error, or KindUnknown if err did not come from a load.
//
// Parameters:
//   - err: the error to classify
//
// Returns:
//   - ErrorKind: the failure kind
func KindOf(err error) ErrorKind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	for k := KindMalformedContainer; k <= KindInvalidAsset; k++ {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindUnknown
}

// newLoadError builds a LoadError with a formatted field description.
func newLoadError(kind ErrorKind, err error, format string, args ...any) *LoadError {
	return &LoadError{Kind: kind, Field: fmt.Sprintf(format, args...), Err: err}
}

// mismatchError builds a LoadError for a field that did not hold the expected value.
func mismatchError(kind ErrorKind, field string, expected, found any) *LoadError {
	return &LoadError{
		Kind:     kind,
		Field:    field,
		Expected: fmt.Sprint(expected),
		Found:    fmt.Sprint(found),
	}
}
