package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/tripledger/pkg/api"
	"github.com/mmynk/tripledger/pkg/api/apiconnect"
)

var errNotLoggedIn = errors.New("not logged in: run `ledgerctl login` or set TRIPLEDGER_TOKEN")

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tripledger-token"
	}
	return filepath.Join(dir, "tripledger", "token")
}

// session holds the Connect clients for one invocation.
type session struct {
	opts     *options
	token    string
	auth     *apiconnect.AuthServiceClient
	groups   *apiconnect.GroupServiceClient
	expenses *apiconnect.ExpenseServiceClient
}

func newSession(opts *options) *session {
	client := &http.Client{Timeout: 30 * time.Second}
	return &session{
		opts:     opts,
		auth:     apiconnect.NewAuthServiceClient(client, opts.server),
		groups:   apiconnect.NewGroupServiceClient(client, opts.server),
		expenses: apiconnect.NewExpenseServiceClient(client, opts.server),
	}
}

// authenticated returns a session carrying the saved token.
func authenticated(opts *options) (*session, error) {
	s := newSession(opts)
	if tok := os.Getenv("TRIPLEDGER_TOKEN"); tok != "" {
		s.token = tok
		return s, nil
	}
	b, err := os.ReadFile(opts.tokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	s.token = strings.TrimSpace(string(b))
	if s.token == "" {
		return nil, errNotLoggedIn
	}
	return s, nil
}

func (s *session) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.opts.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.opts.tokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func request[T any](s *session, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if s.token != "" {
		req.Header().Set("Authorization", "Bearer "+s.token)
	}
	return req
}

// printJSON writes v indented when --json is set and reports whether it did.
func (s *session) printJSON(w io.Writer, v any) (bool, error) {
	if !s.opts.json {
		return false, nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

// explain turns a Connect error into a one-line message with the rejection
// reason when the server sent one.
func explain(err error) error {
	if err == nil {
		return nil
	}
	if info, ok := api.ErrorInfoFrom(err); ok && info.Reason != "" {
		return fmt.Errorf("%s (%s): %s", connect.CodeOf(err), info.Reason, info.Message)
	}
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return fmt.Errorf("%s: %s", cerr.Code(), cerr.Message())
	}
	return err
}
