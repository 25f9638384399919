package dispatcher

import (
	"errors"
	"fmt"
)

// CodeCallbackFailure is the error code of a failed subscription callback.
const CodeCallbackFailure = "CALLBACK_FAILURE"

var (
	// ErrCallbackFailure matches any *CallbackError with errors.Is.
	ErrCallbackFailure = errors.New("callback failure")
	// ErrParserPanic matches a *ParserPanicError with errors.Is.
	ErrParserPanic = errors.New("parser panicked")
)

// Stage names the step of frame handling that failed.
type Stage string

const (
	StageEnvelope Stage = "envelope"
	StageMessage  Stage = "message"
	StageCallback Stage = "callback"
)

// FrameError is a failure scoped to a single incoming frame. The frame is
// discarded and dispatch continues with the next one.
type FrameError struct {
	Stage Stage
	Topic string
	Type  string
	Err   error
}

func (e *FrameError) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s topic=%s type=%s: %v", e.Stage, e.Topic, e.Type, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// CallbackError wraps an error returned by, or a panic raised in, a
// subscription callback.
type CallbackError struct {
	Code  string
	Topic string
	Err   error
	Panic any
}

func newCallbackError(topic string, err error, panicValue any) *CallbackError {
	return &CallbackError{Code: CodeCallbackFailure, Topic: topic, Err: err, Panic: panicValue}
}

func (e *CallbackError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s: callback for %s panicked: %v", e.Code, e.Topic, e.Panic)
	}
	return fmt.Sprintf("%s: callback for %s: %v", e.Code, e.Topic, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

func (e *CallbackError) Is(target error) bool { return target == ErrCallbackFailure }

// ParserPanicError reports a panic raised by a subscription's parser. It is
// wrapped in a FrameError at the message stage.
type ParserPanicError struct {
	Topic string
	Panic any
}

func (e *ParserPanicError) Error() string {
	return fmt.Sprintf("parser for %s panicked: %v", e.Topic, e.Panic)
}

func (e *ParserPanicError) Is(target error) bool { return target == ErrParserPanic }
