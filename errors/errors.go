// Package errors is a trimmed fork of `github.com/go-errors/errors` that adds
// gRPC status codes, HTTP status mapping and public messages to the stack
// carrying *Error type.
//
// Sentinels are declared once with NewC and re-stamped with Mark at the point
// they are returned, so that callers can match them with Is while logs still
// point at the line that failed:
//
//	var ErrNotFound = errors.NewC("record not found", codes.NotFound)
//
//	func (s *store) Get(id string) (*Account, error) {
//	    ...
//	    return nil, errors.Mark(ErrNotFound, 0)
//	}
package errors

import (
	"bytes"
	baseerrors "errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/runtime/protoiface"
)

// The maximum number of stackframes on any error.
var MaxStackDepth = 50

// Error is an error with an attached stacktrace. It can be used
// wherever the builtin error interface is expected.
type Error struct {
	Err    error
	stack  []uintptr
	prefix string
	suffix []string

	// gRPC status code to associate with an error response.
	code codes.Code

	// Error details which gRPC returns the client.
	details []protoiface.MessageV1

	// HTTP status code to associate with an error response.
	httpStatusCode int

	// Error message to return to client.
	publicMessage string
}

// New makes an Error from the given value. If that value is already an
// error then it will be used directly, if not, it will be passed to
// fmt.Errorf("%v"). The stacktrace will point to the line of code that
// called New.
func New(e interface{}) *Error {
	return newC(e, codes.Unknown, 1)
}

// NewC makes an Error with a status code defined.
func NewC(e interface{}, code codes.Code) *Error {
	return newC(e, code, 1)
}

func newC(e interface{}, code codes.Code, skip int) *Error {
	var err error
	switch e := e.(type) {
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}
	return &Error{
		Err:   err,
		stack: callers(2 + skip),
		code:  code,
	}
}

// Wrap makes an Error from the given value. If that value is already an
// *Error it is returned unchanged. The skip parameter indicates how far up
// the stack to start the stacktrace. 0 is from the current call, 1 from its
// caller, etc.
func Wrap(e interface{}, skip int) *Error {
	if e == nil {
		return nil
	}

	var err error
	switch e := e.(type) {
	case *Error:
		return e
	case error:
		err = e
	default:
		err = fmt.Errorf("%v", e)
	}

	return &Error{
		Err:   err,
		stack: callers(2 + skip),
		code:  codes.Unknown,
	}
}

// MaybeWrap is like Wrap but returns a plain nil error when e is nil, which
// makes it safe to use on a return path: `return errors.MaybeWrap(err, 0)`.
func MaybeWrap(e error, skip int) error {
	if e == nil {
		return nil
	}
	return Wrap(e, 1+skip)
}

// WrapPrefix makes an Error from the given value and prefixes its message.
// The skip parameter indicates how far up the stack to start the stacktrace.
func WrapPrefix(e interface{}, prefix string, skip int) *Error {
	if e == nil {
		return nil
	}

	err := Wrap(e, 1+skip)
	if err.prefix != "" {
		prefix = fmt.Sprintf("%s: %s", prefix, err.prefix)
	}

	cp := err.clone()
	cp.prefix = prefix
	return cp
}

// Mark takes an error and sets the stack trace from the point it was called,
// overriding any previous stack trace that may have been set. The returned
// error still matches the original with Is. The skip parameter indicates how
// far up the stack to start the stacktrace.
func Mark(e interface{}, skip int) *Error {
	if e == nil {
		return nil
	}
	if err, ok := e.(*Error); ok {
		cp := err.clone()
		cp.Err = err
		cp.prefix = ""
		cp.suffix = nil
		cp.stack = callers(2 + skip)
		return cp
	}
	return Wrap(e, 1+skip)
}

// Errorf creates a new error with the given message. You can use it
// as a drop-in replacement for fmt.Errorf() to provide descriptive
// errors in return values. Wrapped sentinels keep their code.
func Errorf(format string, a ...interface{}) *Error {
	err := fmt.Errorf(format, a...)
	return &Error{
		Err:   err,
		stack: callers(2),
		code:  Code(err),
	}
}

// Codef creates a new error with the given code and formatted message.
func Codef(code codes.Code, format string, a ...interface{}) *Error {
	return &Error{
		Err:   fmt.Errorf(format, a...),
		stack: callers(2),
		code:  code,
	}
}

// WithPublicMessage takes an error message and adds a public message to it. If
// the error is not already an `Error`, it will be wrapped in one.
func WithPublicMessage(err error, publicMessage string) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithPublicMessage(publicMessage)
}

// WithCode takes an error and adds a gRPC status code to it. If the error is
// not already an `Error`, it will be wrapped in one.
func WithCode(err error, code codes.Code) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithCode(code)
}

// WithHTTPStatusCode takes an error and adds an explicit HTTP status code to
// it, overriding the HTTP status mapped from the gRPC code.
func WithHTTPStatusCode(err error, code int) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, 1).WithHTTPStatusCode(code)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return baseerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return baseerrors.As(err, target)
}

// Error returns the underlying error's message.
func (err *Error) Error() string {
	msg := err.Err.Error()
	if err.prefix != "" {
		msg = err.prefix + ": " + msg
	}
	if len(err.suffix) > 0 {
		msg += ": " + strings.Join(err.suffix, ": ")
	}
	return msg
}

// Append adds context to the end of the error message.
func (err *Error) Append(msg string) *Error {
	err.suffix = append(err.suffix, msg)
	return err
}

// Stack returns the callstack formatted the same way that go does
// in runtime/debug.Stack().
func (err *Error) Stack() []byte {
	buf := bytes.Buffer{}
	frames := runtime.CallersFrames(err.stack)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return buf.Bytes()
}

// Callers returns the raw program counters of the stack.
func (err *Error) Callers() []uintptr {
	return err.stack
}

// ErrorStack returns a string that contains both the
// error message and the callstack.
func (err *Error) ErrorStack() string {
	return err.TypeName() + " " + err.Error() + "\n" + string(err.Stack())
}

// TypeName returns the type this error. e.g. *errors.stringError.
func (err *Error) TypeName() string {
	return reflect.TypeOf(err.Err).String()
}

// Unwrap the error (implements api for As function).
func (err *Error) Unwrap() error {
	return err.Err
}

// Code returns the gRPC status code associated with the error.
func (err *Error) Code() codes.Code {
	return err.code
}

// WithCode sets the gRPC status code associated with the error.
func (err *Error) WithCode(code codes.Code) *Error {
	err.code = code
	return err
}

// Details returns the gRPC details associated with the error.
func (err *Error) Details() []protoiface.MessageV1 {
	return err.details
}

// WithDetails sets the gRPC details associated with the error.
func (err *Error) WithDetails(details ...protoiface.MessageV1) *Error {
	err.details = append(err.details, details...)
	return err
}

// HTTPStatusCode returns the HTTP status code that should be returned to the
// client. If a code is set, it will be used, otherwise a default will be
// returned based on the gRPC code.
func (err *Error) HTTPStatusCode() int {
	if err.httpStatusCode != 0 {
		return err.httpStatusCode
	}
	switch err.code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WithHTTPStatusCode sets the HTTP status code that should be returned to the
// client.
func (err *Error) WithHTTPStatusCode(code int) *Error {
	err.httpStatusCode = code
	return err
}

// PublicMessage returns the error string that should be returned to the client.
func (err *Error) PublicMessage() string {
	if err.publicMessage != "" {
		return err.publicMessage
	}
	return err.Error()
}

// WithPublicMessage sets the error string that should be returned to the client.
func (err *Error) WithPublicMessage(publicMessage string) *Error {
	err.publicMessage = publicMessage
	return err
}

// GRPCStatus returns a gRPC status object for the error.
func (err *Error) GRPCStatus() *status.Status {
	st := status.New(err.Code(), err.PublicMessage())
	if len(err.details) > 0 {
		st, _ = st.WithDetails(err.details...)
	}
	return st
}

func (err *Error) clone() *Error {
	return &Error{
		Err:            err.Err,
		stack:          err.stack,
		prefix:         err.prefix,
		suffix:         append([]string(nil), err.suffix...),
		code:           err.code,
		details:        err.details,
		httpStatusCode: err.httpStatusCode,
		publicMessage:  err.publicMessage,
	}
}

// Code returns a gRPC status code for an error. If the error is nil, it returns
// codes.OK. Otherwise the first non-Unknown code found in the chain is
// returned, or codes.Unknown if there is none.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	for e := err; e != nil; e = baseerrors.Unwrap(e) {
		if c, ok := e.(codedError); ok && c.Code() != codes.Unknown {
			return c.Code()
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range j.Unwrap() {
				if c := Code(inner); c != codes.Unknown {
					return c
				}
			}
			break
		}
	}
	return codes.Unknown
}

// HTTPStatusCode returns an HTTP status code for an error. If the error is nil,
// it returns http.StatusOK. The first *Error in the chain with an explicit or
// code-derived status wins, otherwise http.StatusInternalServerError.
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e httpError
	if baseerrors.As(err, &e) {
		if ce, ok := e.(*Error); ok && ce.httpStatusCode == 0 && ce.code == codes.Unknown {
			return (&Error{code: Code(err)}).HTTPStatusCode()
		}
		return e.HTTPStatusCode()
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the public message of the first *Error in the chain
// that has one, falling back to fallback.
func PublicMessage(err error, fallback string) string {
	for e := err; e != nil; e = baseerrors.Unwrap(e) {
		if ce, ok := e.(*Error); ok && ce.publicMessage != "" {
			return ce.publicMessage
		}
	}
	return fallback
}

type codedError interface {
	Code() codes.Code
}

type httpError interface {
	HTTPStatusCode() int
}

func callers(skip int) []uintptr {
	stack := make([]uintptr, MaxStackDepth)
	length := runtime.Callers(skip+1, stack[:])
	return stack[:length]
}
