package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/tripledger/pkg/api"
)

const ReceiptServiceName = "tripledger.v1.ReceiptService"

var ReceiptServiceParseReceiptProcedure = procedure(ReceiptServiceName, "ParseReceipt")

type ReceiptServiceHandler interface {
	ParseReceipt(context.Context, *connect.Request[api.ParseReceiptRequest]) (*connect.Response[api.ParseReceiptResponse], error)
}

func NewReceiptServiceHandler(svc ReceiptServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return servicePath(ReceiptServiceName), route{
		ReceiptServiceParseReceiptProcedure: connect.NewUnaryHandler(ReceiptServiceParseReceiptProcedure, svc.ParseReceipt, opts...),
	}
}

type ReceiptServiceClient struct {
	parseReceipt *connect.Client[api.ParseReceiptRequest, api.ParseReceiptResponse]
}

func NewReceiptServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReceiptServiceClient {
	return &ReceiptServiceClient{
		parseReceipt: connect.NewClient[api.ParseReceiptRequest, api.ParseReceiptResponse](
			httpClient, trimBase(baseURL)+ReceiptServiceParseReceiptProcedure, clientOptions(opts)...),
	}
}

func (c *ReceiptServiceClient) ParseReceipt(ctx context.Context, req *connect.Request[api.ParseReceiptRequest]) (*connect.Response[api.ParseReceiptResponse], error) {
	return c.parseReceipt.CallUnary(ctx, req)
}
