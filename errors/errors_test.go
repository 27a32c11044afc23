package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
)

func TestGrpcCode(t *testing.T) {
	assert.Equal(t, codes.OK, Code(nil), "code should be OK")

	err := fmt.Errorf("test error")
	assert.Equal(t, codes.Unknown, Code(err), "code should be unknown")

	err = WithCode(err, codes.InvalidArgument)
	assert.Equal(t, codes.InvalidArgument, Code(err), "code should be InvalidArgument")

	err = WithCode(err, codes.AlreadyExists)
	assert.Equal(t, codes.AlreadyExists, Code(err), "code should be AlreadyExists")

	err = WrapPrefix(err, "wrapped", 0)
	assert.Equal(t, codes.AlreadyExists, Code(err), "code should still be AlreadyExists")
}

func TestHttpStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatusCode(nil), "non errors should 200")

	err := fmt.Errorf("test error")
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusCode(err), "should default to 500")

	err = WithCode(err, codes.FailedPrecondition)
	assert.Equal(t, http.StatusPreconditionFailed, HTTPStatusCode(err))

	err = WithHTTPStatusCode(err, http.StatusConflict)
	assert.Equal(t, http.StatusConflict, HTTPStatusCode(err), "http status code should override grpc code")

	err = WrapPrefix(err, "wrapped", 0)
	assert.Equal(t, http.StatusConflict, HTTPStatusCode(err), "http status code should still be 409")
}

func TestHttpStatusCode_ThroughFmtWrap(t *testing.T) {
	sentinel := NewC("unavailable", codes.Unavailable)
	err := Errorf("store: %w", sentinel)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusCode(err))
}

func TestPrefix(t *testing.T) {
	err := fmt.Errorf("test error")
	err = WrapPrefix(err, "wrapped", 0)
	assert.Equal(t, "wrapped: test error", err.Error(), "error should have prefix")
}

func TestAppend(t *testing.T) {
	sentinel := NewC("record not found", codes.NotFound)
	err := Mark(sentinel, 0).Append("accounts").Append("id=42")
	assert.Equal(t, "record not found: accounts: id=42", err.Error())
	assert.Equal(t, "record not found", sentinel.Error(), "sentinel must not be mutated")
}

func TestGRPCStatus(t *testing.T) {
	badRequest := &errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{
				Field:       "provider",
				Description: "Provider was empty",
			},
		},
	}

	err := NewC("test error", codes.InvalidArgument).WithDetails(badRequest)
	st := err.GRPCStatus()
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "test error", st.Message())
	assert.Equal(t, "provider", st.Details()[0].(*errdetails.BadRequest).FieldViolations[0].Field)
}

func TestPublicMessage(t *testing.T) {
	err := New("test error")
	assert.Equal(t, "test error", err.GRPCStatus().Message())

	err = err.WithPublicMessage("public message")
	assert.Equal(t, "public message", err.GRPCStatus().Message())

	wrapped := fmt.Errorf("outer: %w", Mark(err, 0))
	assert.Equal(t, "public message", PublicMessage(wrapped, "fallback"))
	assert.Equal(t, "fallback", PublicMessage(io.EOF, "fallback"))
}

func TestWrappedError(t *testing.T) {
	err := NewC("test error", codes.InvalidArgument)
	wrappedErr := fmt.Errorf("%w : wrapped error", err)

	assert.Equal(t, codes.InvalidArgument, Code(wrappedErr))
}

func TestMark(t *testing.T) {
	err := NewC("test error", codes.InvalidArgument)
	markedErr := Mark(err, 0)

	assert.True(t, Is(markedErr, err), "Marked error should still satisfy Is")
	assert.Equal(t, codes.InvalidArgument, Code(markedErr))
	assert.NotEqual(t, err.Callers(), markedErr.Callers())
}

func TestMaybeWrap(t *testing.T) {
	assert.NoError(t, MaybeWrap(nil, 0))

	err := MaybeWrap(io.EOF, 0)
	require.Error(t, err)
	assert.True(t, Is(err, io.EOF))
	assert.IsType(t, &Error{}, err)
}

func TestErrorfJoinsSentinels(t *testing.T) {
	sentinel := NewC("store unavailable", codes.Unavailable)
	err := Errorf("%w: %w", sentinel, io.ErrUnexpectedEOF)

	assert.True(t, Is(err, sentinel))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, codes.Unavailable, Code(err))
}

func TestCodef(t *testing.T) {
	err := Codef(codes.Internal, "google: status %d", 502)
	assert.Equal(t, "google: status 502", err.Error())
	assert.Equal(t, codes.Internal, err.Code())
}

func TestStack(t *testing.T) {
	err := New("boom")
	assert.Contains(t, string(err.Stack()), "TestStack")
	assert.Contains(t, err.ErrorStack(), "boom")
}

func TestIs(t *testing.T) {
	regularErr := fmt.Errorf("just a regular error")

	tests := []struct {
		name     string
		target   error
		original error
		want     bool
	}{
		{name: "regular error", target: regularErr, original: regularErr, want: true},
		{name: "regular error, wrapped", target: Wrap(regularErr, 0), original: regularErr, want: true},
		{name: "different errors", target: Wrap(io.EOF, 0), original: regularErr, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.target, tt.original))
		})
	}
}
