package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivereader/hivereader/broadcast"
)

// signerService records every payload the bridge posts and answers with a
// canned signing response.
type signerService struct {
	mu       sync.Mutex
	payloads []map[string]json.RawMessage
	response string
}

func (s *signerService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&payload)
		s.mu.Lock()
		s.payloads = append(s.payloads, payload)
		s.mu.Unlock()
		w.Write([]byte(s.response))
	}
}

func (s *signerService) received() []map[string]json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads
}

func TestKeychainRequestCarriesUsername(t *testing.T) {
	service := &signerService{response: `{"success":true}`}
	srv := httptest.NewServer(service.handler())
	defer srv.Close()

	bridge := &signerBridge{url: srv.URL, client: srv.Client()}
	signers := buildSigners(bridge, envKeyStore{})

	ops := []broadcast.Operation{broadcast.VoteOperation("alice", "bob", "a-post", 100)}
	err := signers[broadcast.MethodKeychain].Sign(context.Background(), "alice", ops, broadcast.AuthorityPosting)
	require.NoError(t, err)

	payloads := service.received()
	require.Len(t, payloads, 1)
	assert.JSONEq(t, `"alice"`, string(payloads[0]["username"]))
	assert.JSONEq(t, `"posting"`, string(payloads[0]["authority"]))
}

func TestDirectKeyBroadcastCarriesResolvedKey(t *testing.T) {
	service := &signerService{response: `{"success":true}`}
	srv := httptest.NewServer(service.handler())
	defer srv.Close()

	bridge := &signerBridge{url: srv.URL, client: srv.Client()}
	keys := envKeyStore{"alice/posting": "5JdevPostingWif"}
	signers := buildSigners(bridge, keys)

	ops := []broadcast.Operation{broadcast.VoteOperation("alice", "bob", "a-post", 100)}
	err := signers[broadcast.MethodDirectKey].Sign(context.Background(), "alice", ops, broadcast.AuthorityPosting)
	require.NoError(t, err)

	payloads := service.received()
	require.Len(t, payloads, 1)

	var sentKeys map[string]string
	require.NoError(t, json.Unmarshal(payloads[0]["keys"], &sentKeys))
	assert.Equal(t, "5JdevPostingWif", sentKeys["posting"])

	var sentOps []json.RawMessage
	require.NoError(t, json.Unmarshal(payloads[0]["operations"], &sentOps))
	assert.Len(t, sentOps, 1)
}

func TestDirectKeyWithoutKeyNeverReachesService(t *testing.T) {
	service := &signerService{response: `{"success":true}`}
	srv := httptest.NewServer(service.handler())
	defer srv.Close()

	bridge := &signerBridge{url: srv.URL, client: srv.Client()}
	signers := buildSigners(bridge, envKeyStore{})

	ops := []broadcast.Operation{broadcast.VoteOperation("alice", "bob", "a-post", 100)}
	err := signers[broadcast.MethodDirectKey].Sign(context.Background(), "alice", ops, broadcast.AuthorityPosting)

	var auth *broadcast.AuthError
	require.ErrorAs(t, err, &auth)
	assert.Empty(t, service.received())
}

func TestDirectKeyBroadcastServiceFailure(t *testing.T) {
	service := &signerService{response: `{"success":false,"error":"missing required posting authority"}`}
	srv := httptest.NewServer(service.handler())
	defer srv.Close()

	bridge := &signerBridge{url: srv.URL, client: srv.Client()}
	keys := envKeyStore{"alice/posting": "5JdevPostingWif"}
	signers := buildSigners(bridge, keys)

	ops := []broadcast.Operation{broadcast.VoteOperation("alice", "bob", "a-post", 100)}
	err := signers[broadcast.MethodDirectKey].Sign(context.Background(), "alice", ops, broadcast.AuthorityPosting)

	var auth *broadcast.AuthError
	require.ErrorAs(t, err, &auth)
}
