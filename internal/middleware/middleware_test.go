package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tripledger/internal/auth"
	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/pkg/api"
	"github.com/mmynk/tripledger/pkg/api/apiconnect"
)

// whoami echoes the identity RequireAuth put in the context.
type whoami struct{}

func (whoami) Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	return connect.NewResponse(&api.RegisterResponse{Token: "public"}), nil
}

func (whoami) Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("no"))
}

func (whoami) GetCurrentUser(ctx context.Context, _ *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	return connect.NewResponse(&api.GetCurrentUserResponse{
		User: &api.User{ID: GetUserID(ctx), Username: GetUsername(ctx)},
	}), nil
}

func (whoami) SearchUsers(context.Context, *connect.Request[api.SearchUsersRequest]) (*connect.Response[api.SearchUsersResponse], error) {
	return nil, errors.New("boom")
}

func setupServer(t *testing.T, jwtManager *auth.JWTManager, metrics *Metrics) *apiconnect.AuthServiceClient {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := apiconnect.NewAuthServiceHandler(whoami{}, connect.WithInterceptors(
		metrics.Interceptor(),
		RequireAuth(jwtManager, apiconnect.AuthServiceRegisterProcedure, apiconnect.AuthServiceLoginProcedure),
		LoggingInterceptor(nil),
	))
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return apiconnect.NewAuthServiceClient(server.Client(), server.URL)
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	client := setupServer(t, jwtManager, nil)
	ctx := context.Background()

	t.Run("public procedure needs no token", func(t *testing.T) {
		resp, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{}))
		require.NoError(t, err)
		assert.Equal(t, "public", resp.Msg.Token)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := client.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("malformed header", func(t *testing.T) {
		req := connect.NewRequest(&api.GetCurrentUserRequest{})
		req.Header().Set("Authorization", "Token abc")
		_, err := client.GetCurrentUser(ctx, req)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("valid token sets identity", func(t *testing.T) {
		user := models.NewUser("alice", "", "")
		token, err := jwtManager.Generate(user)
		require.NoError(t, err)

		req := connect.NewRequest(&api.GetCurrentUserRequest{})
		req.Header().Set("Authorization", "Bearer "+token)
		resp, err := client.GetCurrentUser(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resp.Msg.User.ID)
		assert.Equal(t, "alice", resp.Msg.User.Username)
	})
}

func TestMetricsInterceptor(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	metrics := NewMetrics()
	client := setupServer(t, jwtManager, metrics)
	ctx := context.Background()

	_, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{}))
	require.NoError(t, err)
	_, err = client.Login(ctx, connect.NewRequest(&api.LoginRequest{}))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.rpcRequests.WithLabelValues(apiconnect.AuthServiceRegisterProcedure, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		metrics.rpcRequests.WithLabelValues(apiconnect.AuthServiceLoginProcedure, connect.CodeUnauthenticated.String())))
}

func TestLedgerMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ExpenseCreated()
	metrics.ExpenseCreated()
	metrics.ExpenseRejected("SplitSumMismatch")
	metrics.SettlementPlanned(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.expensesCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.expenseRejections.WithLabelValues("SplitSumMismatch")))

	n, err := testutil.GatherAndCount(metrics.Registry(), "tripledger_settlement_transactions")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// nil receivers are no-ops
	var none *Metrics
	none.ExpenseCreated()
	none.ExpenseRejected("x")
	none.SettlementPlanned(1)
}

func TestCORS(t *testing.T) {
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
