package grpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/batchprot/bearer-auth/core"
)

// ErrorHandler converts a check failure into the error returned to the client.
type ErrorHandler func(error) error

// DefaultErrorHandler returns codes.Unauthenticated with the fixed message
// "unauthenticated" for every failure. The cause stays server-side; use
// core.ErrorCode on err in a custom handler to inspect it.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(codes.Unauthenticated, core.ErrUnauthenticated.Error())
}
