// Package apiconnect wires the tripledger.v1 services onto Connect handlers
// and clients using the api JSON codec.
package apiconnect

import (
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripledger/pkg/api"
)

// PackagePrefix is shared by every procedure path.
const PackagePrefix = "/tripledger.v1."

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{
		connect.WithCodec(api.Codec{}),
		connect.WithCodec(api.CharsetCodec),
	}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(api.Codec{})}, opts...)
}

// route serves handlers by exact procedure path under a service prefix.
type route map[string]http.Handler

func (rt route) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := rt[r.URL.Path]; ok {
		h.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func servicePath(name string) string {
	return "/" + name + "/"
}

func procedure(service, method string) string {
	return "/" + service + "/" + method
}

func trimBase(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}
