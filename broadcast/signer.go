package broadcast

import (
	"context"
	"strings"
)

// Signer signs and broadcasts a batch of operations on behalf of a user.
// Implementations adapt the two callback-shaped external capabilities into
// plain error returns; the gateway never sees the difference.
type Signer interface {
	Sign(ctx context.Context, username string, ops []Operation, authority Authority) error
}

// KeychainResponse is the callback payload of the extension-style signer.
type KeychainResponse struct {
	Success   bool
	Cancelled bool
	Error     string
}

// KeychainRequestFunc is the extension-style broadcast capability: it takes
// the operation envelope and eventually invokes the callback exactly once.
type KeychainRequestFunc func(username string, ops []Operation, authority Authority, callback func(KeychainResponse))

// KeychainSigner adapts the extension-style signer. The private key never
// passes through this process; the extension signs on its side and reports
// back through the callback.
type KeychainSigner struct {
	request KeychainRequestFunc
}

func NewKeychainSigner(request KeychainRequestFunc) *KeychainSigner {
	return &KeychainSigner{request: request}
}

func (s *KeychainSigner) Sign(ctx context.Context, username string, ops []Operation, authority Authority) error {
	done := make(chan KeychainResponse, 1)
	s.request(username, ops, authority, func(resp KeychainResponse) {
		done <- resp
	})

	select {
	case resp := <-done:
		switch {
		case resp.Success:
			return nil
		case resp.Cancelled:
			return &CancelledError{}
		case isAuthFailure(resp.Error):
			return &AuthError{Reason: resp.Error}
		default:
			return &NetworkError{Cause: stringError(resp.Error)}
		}
	case <-ctx.Done():
		return &NetworkError{Cause: ctx.Err()}
	}
}

// BroadcastFunc is the direct-key broadcast capability with a Node-style
// err-first callback.
type BroadcastFunc func(ops []Operation, keys map[Authority]string, callback func(err error, result interface{}))

// KeyStore resolves a locally held private key for a user at the given
// authority level. Returns empty when no key is on file.
type KeyStore interface {
	PrivateKey(username string, authority Authority) string
}

// DirectKeySigner adapts the direct-key broadcast call for users logged in
// with a raw key instead of the extension.
type DirectKeySigner struct {
	broadcast BroadcastFunc
	keys      KeyStore
}

func NewDirectKeySigner(broadcast BroadcastFunc, keys KeyStore) *DirectKeySigner {
	return &DirectKeySigner{broadcast: broadcast, keys: keys}
}

func (s *DirectKeySigner) Sign(ctx context.Context, username string, ops []Operation, authority Authority) error {
	key := s.keys.PrivateKey(username, authority)
	if key == "" {
		return &AuthError{Reason: "no " + string(authority) + " key on file for " + username}
	}

	type result struct {
		err error
	}
	done := make(chan result, 1)
	s.broadcast(ops, map[Authority]string{authority: key}, func(err error, _ interface{}) {
		done <- result{err: err}
	})

	select {
	case res := <-done:
		if res.err == nil {
			return nil
		}
		if isAuthFailure(res.err.Error()) {
			return &AuthError{Reason: res.err.Error()}
		}
		return &NetworkError{Cause: res.err}
	case <-ctx.Done():
		return &NetworkError{Cause: ctx.Err()}
	}
}

// isAuthFailure classifies a transport error message as an authorization
// problem. Node error strings are not structured, substring matching is the
// best available signal.
func isAuthFailure(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, marker := range []string{"missing required", "unauthorized", "invalid key", "expired", "authority"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

type stringError string

func (e stringError) Error() string { return string(e) }
