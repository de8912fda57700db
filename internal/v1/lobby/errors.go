package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blazerhq/blazer/internal/v1/logging"
	"github.com/blazerhq/blazer/internal/v1/store"
)

// APIError is the client-visible error sum for the lobby service. It carries
// its transport code so the API-error-to-status mapping happens exactly once,
// here; store error types never reach handler signatures.
type APIError struct {
	code codes.Code
	msg  string
}

func (e *APIError) Error() string { return e.msg }

// GRPCStatus lets the gRPC layer translate the error without any extra
// mapping step in handlers.
func (e *APIError) GRPCStatus() *status.Status {
	return status.New(e.code, e.msg)
}

func ErrUserNotFound(userID string) *APIError {
	return &APIError{codes.NotFound, fmt.Sprintf("the user with id %s does not exist", userID)}
}

func ErrUserAlreadyExists(userID string) *APIError {
	return &APIError{codes.AlreadyExists, fmt.Sprintf("the user with id %s already exists", userID)}
}

func ErrRoomNotFound(roomID string) *APIError {
	return &APIError{codes.NotFound, fmt.Sprintf("the room with id %s does not exist", roomID)}
}

func ErrRoomAlreadyExists(roomID string) *APIError {
	return &APIError{codes.AlreadyExists, fmt.Sprintf("the room with id %s already exists", roomID)}
}

func ErrBadRequest(msg string) *APIError {
	return &APIError{codes.InvalidArgument, msg}
}

func ErrInternal() *APIError {
	return &APIError{codes.Internal, "internal server error"}
}

// asNotFound maps a store not-found to apiErr; every other store error is
// logged and surfaced as internal.
func asNotFound(ctx context.Context, err error, apiErr *APIError) error {
	if errors.Is(err, store.ErrNotFound) {
		return apiErr
	}
	return asInternal(ctx, err)
}

// asDuplicate maps a store duplicate to apiErr; every other store error is
// logged and surfaced as internal.
func asDuplicate(ctx context.Context, err error, apiErr *APIError) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apiErr
	}
	return asInternal(ctx, err)
}

// asInternal logs the underlying store error and returns the opaque internal
// error.
func asInternal(ctx context.Context, err error) error {
	logging.Error(ctx, "Store operation failed", zap.Error(err))
	return ErrInternal()
}
