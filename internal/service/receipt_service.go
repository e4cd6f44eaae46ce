package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/receipt"
	"github.com/mmynk/tripledger/pkg/api"
	"github.com/mmynk/tripledger/pkg/api/apiconnect"
)

var _ apiconnect.ReceiptServiceHandler = (*ReceiptService)(nil)

// ErrReceiptsDisabled is returned when no receipt parser is configured.
var ErrReceiptsDisabled = errors.New("receipt parsing is not configured")

// ReceiptService turns receipt photos into line items. It never writes
// ledger state; clients submit the items as an ITEMIZED expense.
type ReceiptService struct {
	parser    receipt.Parser
	converter *receipt.Converter
	logger    *slog.Logger
}

// NewReceiptService creates a ReceiptService. A nil parser disables parsing
// and a nil converter disables currency conversion.
func NewReceiptService(parser receipt.Parser, converter *receipt.Converter, logger *slog.Logger) *ReceiptService {
	return &ReceiptService{parser: parser, converter: converter, logger: logger}
}

// ParseReceipt extracts priced items from an image, optionally converted.
func (s *ReceiptService) ParseReceipt(ctx context.Context, req *connect.Request[api.ParseReceiptRequest]) (*connect.Response[api.ParseReceiptResponse], error) {
	const op = "parse receipt"
	if _, err := actor(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("ParseReceipt request", "bytes", len(req.Msg.Image), "mime_type", req.Msg.MimeType)

	if s.parser == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, ErrReceiptsDisabled)
	}
	if len(req.Msg.Image) == 0 {
		return nil, toConnectError(ledger.Invalid(op, ledger.ReasonInvalidRequest, "image required"))
	}
	mimeType := req.Msg.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	items, err := s.parser.Parse(ctx, req.Msg.Image, mimeType)
	if err != nil {
		s.logger.Error("ParseReceipt failed", "error", err)
		return nil, toConnectError(err)
	}

	target := strings.ToUpper(strings.TrimSpace(req.Msg.TargetCurrency))
	if target != "" {
		if s.converter == nil {
			return nil, toConnectError(ledger.Invalid(op, ledger.ReasonInvalidRequest, "currency conversion is not configured"))
		}
		if items, err = s.converter.Convert(ctx, items, target); err != nil {
			s.logger.Error("ParseReceipt conversion failed", "target", target, "error", err)
			return nil, toConnectError(err)
		}
	}

	resp := &api.ParseReceiptResponse{Items: make([]*api.ReceiptItem, len(items))}
	for i, it := range items {
		resp.Items[i] = &api.ReceiptItem{
			Name:     it.Name,
			Price:    amount(it.Price),
			Currency: it.Price.Currency(),
		}
	}

	// A total is only meaningful when every item shares one currency.
	if cur := commonCurrency(items); cur != "" {
		if total, err := receipt.Total(items, cur); err == nil {
			resp.Currency = cur
			resp.Total = amount(total)
		}
	}

	s.logger.Info("ParseReceipt successful", "items", len(items), "currency", resp.Currency)
	return connect.NewResponse(resp), nil
}

func commonCurrency(items []receipt.Item) string {
	var cur string
	for _, it := range items {
		switch c := it.Price.Currency(); {
		case cur == "":
			cur = c
		case c != cur:
			return ""
		}
	}
	return cur
}
