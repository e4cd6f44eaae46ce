package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tripledger/internal/auth"
	"github.com/mmynk/tripledger/internal/middleware"
	"github.com/mmynk/tripledger/internal/storage/sqlite"
	"github.com/mmynk/tripledger/pkg/api"
	"github.com/mmynk/tripledger/pkg/api/apiconnect"
	"github.com/mmynk/tripledger/pkg/logging"
)

// setupAuthServer wires the real bearer-token interceptor in front of the
// auth and group services.
func setupAuthServer(t *testing.T) (*apiconnect.AuthServiceClient, *apiconnect.GroupServiceClient) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	opts := connect.WithInterceptors(middleware.RequireAuth(jwtManager,
		apiconnect.AuthServiceRegisterProcedure,
		apiconnect.AuthServiceLoginProcedure,
	))

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(NewAuthService(authenticator, jwtManager, store, logging.Discard()), opts))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store, store, "USD", nil), opts))
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return apiconnect.NewAuthServiceClient(server.Client(), server.URL),
		apiconnect.NewGroupServiceClient(server.Client(), server.URL)
}

func withToken[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthService(t *testing.T) {
	client, groups := setupAuthServer(t)
	ctx := context.Background()

	reg, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{
		Username:    "Alice",
		Password:    "correct horse",
		DisplayName: "Alice A.",
	}))
	require.NoError(t, err)
	assert.Equal(t, "alice", reg.Msg.User.Username)
	assert.Equal(t, "Alice A.", reg.Msg.User.DisplayName)
	assert.NotEmpty(t, reg.Msg.Token)

	t.Run("register rejections", func(t *testing.T) {
		tests := []struct {
			name string
			req  *api.RegisterRequest
			code connect.Code
		}{
			{"taken username", &api.RegisterRequest{Username: "alice", Password: "long enough"}, connect.CodeAlreadyExists},
			{"weak password", &api.RegisterRequest{Username: "bob", Password: "short"}, connect.CodeInvalidArgument},
			{"bad username", &api.RegisterRequest{Username: "b b", Password: "long enough"}, connect.CodeInvalidArgument},
			{"missing fields", &api.RegisterRequest{}, connect.CodeInvalidArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := client.Register(ctx, connect.NewRequest(tt.req))
				assertRejected(t, err, tt.code, "")
			})
		}
	})

	t.Run("login", func(t *testing.T) {
		resp, err := client.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "ALICE", Password: "correct horse"}))
		require.NoError(t, err)
		assert.Equal(t, reg.Msg.User.ID, resp.Msg.User.ID)

		_, err = client.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "alice", Password: "wrong horse"}))
		assertRejected(t, err, connect.CodeUnauthenticated, "")

		_, err = client.Login(ctx, connect.NewRequest(&api.LoginRequest{Username: "nobody", Password: "whatever1"}))
		assertRejected(t, err, connect.CodeUnauthenticated, "")
	})

	t.Run("current user from token", func(t *testing.T) {
		resp, err := client.GetCurrentUser(ctx, withToken(reg.Msg.Token, &api.GetCurrentUserRequest{}))
		require.NoError(t, err)
		assert.Equal(t, reg.Msg.User.ID, resp.Msg.User.ID)
		assert.Equal(t, "Alice A.", resp.Msg.User.DisplayName)

		_, err = client.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
		assertRejected(t, err, connect.CodeUnauthenticated, "")

		_, err = client.GetCurrentUser(ctx, withToken("garbage", &api.GetCurrentUserRequest{}))
		assertRejected(t, err, connect.CodeUnauthenticated, "")
	})

	t.Run("search by prefix", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := client.Register(ctx, connect.NewRequest(&api.RegisterRequest{
				Username: fmt.Sprintf("alina%d", i),
				Password: "long enough",
			}))
			require.NoError(t, err)
		}

		resp, err := client.SearchUsers(ctx, withToken(reg.Msg.Token, &api.SearchUsersRequest{Query: "ALI", Limit: 2}))
		require.NoError(t, err)
		assert.Len(t, resp.Msg.Users, 2)

		resp, err = client.SearchUsers(ctx, withToken(reg.Msg.Token, &api.SearchUsersRequest{Query: "alina"}))
		require.NoError(t, err)
		assert.Len(t, resp.Msg.Users, 3)

		resp, err = client.SearchUsers(ctx, withToken(reg.Msg.Token, &api.SearchUsersRequest{Query: " "}))
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.Users)
	})

	t.Run("token identifies the group creator", func(t *testing.T) {
		resp, err := groups.CreateGroup(ctx, withToken(reg.Msg.Token, &api.CreateGroupRequest{Name: "Trip"}))
		require.NoError(t, err)
		assert.Equal(t, reg.Msg.User.ID, resp.Msg.Group.CreatedBy)
		require.Len(t, resp.Msg.Group.Members, 1)
		assert.Equal(t, "alice", resp.Msg.Group.Members[0].Username)
	})
}
