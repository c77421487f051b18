package errors

import "fmt"

// InvalidWindowSizeError reports a window mode constructed with fewer lines
// than the mode requires.
type InvalidWindowSizeError struct {
	Size    int
	MinSize int
	Mode    string
}

func (e *InvalidWindowSizeError) Error() string {
	return fmt.Sprintf("invalid window size %d for %s mode: minimum is %d",
		e.Size, e.Mode, e.MinSize)
}

// InvalidWindowSize builds the classified mode-creation error around an
// InvalidWindowSizeError cause.
func InvalidWindowSize(size, minSize int, mode string) *Error {
	return New(ModeCreation,
		fmt.Sprintf("cannot create %s mode", mode),
		WithCause(&InvalidWindowSizeError{Size: size, MinSize: minSize, Mode: mode}),
		WithDetail("size", fmt.Sprint(size)),
		WithSeverity(Medium))
}

// MissingParameterError reports a mode constructed without a required
// parameter.
type MissingParameterError struct {
	Param string
	Mode  string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s mode requires parameter %q", e.Mode, e.Param)
}

// MissingParameter builds the classified mode-creation error around a
// MissingParameterError cause.
func MissingParameter(param, mode string) *Error {
	return New(ModeCreation,
		fmt.Sprintf("cannot create %s mode", mode),
		WithCause(&MissingParameterError{Param: param, Mode: mode}),
		WithSeverity(Medium))
}
