package service

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/money"
	"github.com/mmynk/tripledger/internal/receipt"
	"github.com/mmynk/tripledger/pkg/api"
)

type stubParser struct {
	items []receipt.Item
	err   error
	mime  string
}

func (p *stubParser) Parse(_ context.Context, _ []byte, mimeType string) ([]receipt.Item, error) {
	p.mime = mimeType
	return p.items, p.err
}

type stubRates map[string]decimal.Decimal

func (r stubRates) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if rate, ok := r[from+to]; ok {
		return rate, nil
	}
	return decimal.Decimal{}, ledger.Upstream("rate", errors.New("no quote"))
}

func TestParseReceipt(t *testing.T) {
	ctx := context.Background()
	parser := &stubParser{items: []receipt.Item{
		{Name: "Pizza", Price: money.MustParse("20.00", "EUR")},
		{Name: "Water", Price: money.MustParse("1.99", "EUR")},
	}}
	converter := receipt.NewConverter(stubRates{"EURUSD": decimal.RequireFromString("1.1")})
	env := setupTestServer(t, parser, converter)
	env.seedUsers(t, "alice")

	t.Run("items and total", func(t *testing.T) {
		resp, err := env.receipts.ParseReceipt(ctx, as(env, "alice", &api.ParseReceiptRequest{Image: []byte{0xff, 0xd8}}))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", parser.mime, "mime type defaults to JPEG")

		require.Len(t, resp.Msg.Items, 2)
		assert.Equal(t, "Pizza", resp.Msg.Items[0].Name)
		assert.Equal(t, "20.00", resp.Msg.Items[0].Price.String())
		assert.Equal(t, "EUR", resp.Msg.Items[0].Currency)
		assert.Equal(t, "EUR", resp.Msg.Currency)
		assert.Equal(t, "21.99", resp.Msg.Total.String())
	})

	t.Run("converted to a target currency", func(t *testing.T) {
		resp, err := env.receipts.ParseReceipt(ctx, as(env, "alice", &api.ParseReceiptRequest{
			Image:          []byte{1},
			MimeType:       "image/png",
			TargetCurrency: "usd",
		}))
		require.NoError(t, err)
		assert.Equal(t, "image/png", parser.mime)
		assert.Equal(t, "22.00", resp.Msg.Items[0].Price.String())
		assert.Equal(t, "2.19", resp.Msg.Items[1].Price.String())
		assert.Equal(t, "USD", resp.Msg.Currency)
		assert.Equal(t, "24.19", resp.Msg.Total.String())
	})

	t.Run("missing quote is unavailable", func(t *testing.T) {
		_, err := env.receipts.ParseReceipt(ctx, as(env, "alice", &api.ParseReceiptRequest{Image: []byte{1}, TargetCurrency: "GBP"}))
		assertRejected(t, err, connect.CodeUnavailable, "")
	})

	t.Run("empty image", func(t *testing.T) {
		_, err := env.receipts.ParseReceipt(ctx, as(env, "alice", &api.ParseReceiptRequest{}))
		assertRejected(t, err, connect.CodeInvalidArgument, "InvalidRequest")
	})

	t.Run("parser failure is unavailable", func(t *testing.T) {
		failing := &stubParser{err: ledger.Upstream("parse receipt", errors.New("quota exceeded"))}
		env := setupTestServer(t, failing, nil)
		env.seedUsers(t, "alice")
		_, err := env.receipts.ParseReceipt(ctx, as(env, "alice", &api.ParseReceiptRequest{Image: []byte{1}}))
		assertRejected(t, err, connect.CodeUnavailable, "")
	})

	t.Run("mixed currencies have no total", func(t *testing.T) {
		mixed := &stubParser{items: []receipt.Item{
			{Name: "a", Price: money.MustParse("1.00", "EUR")},
			{Name: "b", Price: money.MustParse("1.00", "USD")},
		}}
		env := setupTestServer(t, mixed, nil)
		env.seedUsers(t, "alice")
		resp, err := env.receipts.ParseReceipt(ctx, as(env, "alice", &api.ParseReceiptRequest{Image: []byte{1}}))
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.Currency)
		assert.Empty(t, resp.Msg.Total.String())
	})
}

func TestParseReceipt_Disabled(t *testing.T) {
	env := setupTestServer(t, nil, nil)
	env.seedUsers(t, "alice")
	_, err := env.receipts.ParseReceipt(context.Background(), as(env, "alice", &api.ParseReceiptRequest{Image: []byte{1}}))
	assertRejected(t, err, connect.CodeUnimplemented, "")
}
