package errs

import (
	"errors"
	"fmt"

	pl "github.com/HannahMarsh/PrettyLogger"
)

var (
	ErrConfig = errors.New("configuration error")
	ErrState  = errors.New("state error")
)

// ConfigError is returned at construction time when a component is given
// parameters it cannot work with.
type ConfigError struct {
	Op  string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrConfig, e.Msg)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// StateError is returned when an operation is called before its preconditions hold.
type StateError struct {
	Op  string
	Msg string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrState, e.Msg)
}

func (e *StateError) Unwrap() error {
	return ErrState
}

func Config(op, format string, args ...any) error {
	return &ConfigError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

func State(op, format string, args ...any) error {
	return &StateError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap adds context to err. Configuration and state errors stay matchable
// with errors.Is and errors.As; anything else goes through PrettyLogger.
func Wrap(err error, format string, args ...any) error {
	if errors.Is(err, ErrConfig) || errors.Is(err, ErrState) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	}
	return pl.WrapError(err, format, args...)
}
