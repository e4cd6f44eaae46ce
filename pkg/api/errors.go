package api

import (
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrorInfo is attached to failed RPCs as a google.protobuf.Struct detail so
// that clients can branch on the rejection reason without parsing messages.
type ErrorInfo struct {
	Kind    string
	Reason  string
	Message string
}

// NewErrorDetail encodes info as a Connect error detail.
func NewErrorDetail(info ErrorInfo) (*connect.ErrorDetail, error) {
	s, err := structpb.NewStruct(map[string]any{
		"kind":    info.Kind,
		"reason":  info.Reason,
		"message": info.Message,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewErrorDetail(s)
}

// ErrorInfoFrom extracts the ErrorInfo detail from a Connect error.
func ErrorInfoFrom(err error) (ErrorInfo, bool) {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return ErrorInfo{}, false
	}
	for _, d := range cerr.Details() {
		v, err := d.Value()
		if err != nil {
			continue
		}
		s, ok := v.(*structpb.Struct)
		if !ok {
			continue
		}
		f := s.GetFields()
		return ErrorInfo{
			Kind:    f["kind"].GetStringValue(),
			Reason:  f["reason"].GetStringValue(),
			Message: f["message"].GetStringValue(),
		}, true
	}
	return ErrorInfo{}, false
}
