package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/tripledger/internal/auth"
	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/middleware"
	"github.com/mmynk/tripledger/pkg/api"
)

// toConnectError maps a ledger error kind to its Connect code and attaches
// the kind and reason as an error detail.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return cerr
	}

	var le *ledger.Error
	if !errors.As(err, &le) {
		if errors.Is(err, context.Canceled) {
			return connect.NewError(connect.CodeCanceled, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return connect.NewError(connect.CodeDeadlineExceeded, err)
		}
		return connect.NewError(connect.CodeInternal, err)
	}

	code := connect.CodeInternal
	switch le.Kind {
	case ledger.KindValidation:
		code = connect.CodeInvalidArgument
	case ledger.KindNotFound:
		code = connect.CodeNotFound
	case ledger.KindPermission:
		code = connect.CodePermissionDenied
	case ledger.KindConflict:
		code = connect.CodeAlreadyExists
	case ledger.KindUpstream:
		code = connect.CodeUnavailable
	}

	out := connect.NewError(code, err)
	detail, derr := api.NewErrorDetail(api.ErrorInfo{
		Kind:    string(le.Kind),
		Reason:  string(le.Reason),
		Message: err.Error(),
	})
	if derr == nil {
		out.AddDetail(detail)
	}
	return out
}

// actor returns the authenticated caller or an Unauthenticated error.
func actor(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}
