package reclaimv1

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jamesainslie/reclaim/pkg/reclaim/types"
)

// ErrorDomain is the ErrorInfo domain of reclaim errors.
const ErrorDomain = "reclaim"

var kindCodes = map[types.ErrorKind]codes.Code{
	types.KindInvalidPath:         codes.InvalidArgument,
	types.KindPathNotReadable:     codes.PermissionDenied,
	types.KindOperationInProgress: codes.Aborted,
	types.KindRestoreConflict:     codes.AlreadyExists,
	types.KindManifestNotFound:    codes.NotFound,
	types.KindNoManifests:         codes.FailedPrecondition,
}

// ToStatus converts an engine error to a gRPC status error. The error
// kind, path and cause travel in an ErrorInfo detail.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	kind := types.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}

	info := &errdetails.ErrorInfo{
		Reason:   kind.String(),
		Domain:   ErrorDomain,
		Metadata: map[string]string{},
	}
	var opErr *types.OpError
	if errors.As(err, &opErr) {
		info.Metadata["path"] = opErr.Path
		if opErr.Err != nil {
			info.Metadata["cause"] = opErr.Err.Error()
		}
	}

	st, detailErr := status.New(code, err.Error()).WithDetails(info)
	if detailErr != nil {
		return status.Error(code, err.Error())
	}
	return st.Err()
}

// FromStatus converts a gRPC status error produced by ToStatus back into
// an engine error, so errors.Is matches the same sentinels on both sides.
// Other errors are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		kind := types.ParseErrorKind(info.GetReason())
		if kind == types.KindUnknown {
			continue
		}
		var cause error
		if c := info.GetMetadata()["cause"]; c != "" {
			cause = errors.New(c)
		}
		return types.NewOpError(kind, info.GetMetadata()["path"], cause)
	}
	return err
}
