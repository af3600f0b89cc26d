package broadcast

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSigner remembers what it was asked to sign.
type recordingSigner struct {
	calls     int
	username  string
	ops       []Operation
	authority Authority
	err       error
}

func (s *recordingSigner) Sign(ctx context.Context, username string, ops []Operation, authority Authority) error {
	s.calls++
	s.username = username
	s.ops = ops
	s.authority = authority
	return s.err
}

type recordingInvalidator struct {
	invalidated []string
}

func (r *recordingInvalidator) Invalidate(username string) {
	r.invalidated = append(r.invalidated, username)
}

func keychainOnly(signer Signer) (map[LoginMethod]Signer, LoginMethodResolver) {
	return map[LoginMethod]Signer{MethodKeychain: signer},
		func(username string) LoginMethod { return MethodKeychain }
}

func TestVote(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	gateway := NewGateway(signers, resolve, nil)

	err := gateway.Vote(context.Background(), VoteInput{
		Voter: "alice", Author: "bob", Permlink: "my-post", Weight: 10000,
	})
	require.NoError(t, err)
	require.Len(t, signer.ops, 1)
	assert.Equal(t, "vote", signer.ops[0].Type)
	assert.Equal(t, AuthorityPosting, signer.authority)
	assert.Equal(t, "alice", signer.username)
}

func TestVoteZeroWeightRejectedBeforeDispatch(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	gateway := NewGateway(signers, resolve, nil)

	err := gateway.Vote(context.Background(), VoteInput{
		Voter: "alice", Author: "bob", Permlink: "my-post", Weight: 0,
	})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Zero(t, signer.calls)
}

func TestVoteWeightOutOfRange(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	gateway := NewGateway(signers, resolve, nil)

	err := gateway.Vote(context.Background(), VoteInput{
		Voter: "alice", Author: "bob", Permlink: "p", Weight: 10001,
	})
	var validation *ValidationError
	assert.True(t, errors.As(err, &validation))
	assert.Zero(t, signer.calls)
}

func TestSubscribeInvalidatesCacheOnSuccess(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	invalidator := &recordingInvalidator{}
	gateway := NewGateway(signers, resolve, invalidator)

	err := gateway.Subscribe(context.Background(), "alice", "hive-100")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, invalidator.invalidated)
	require.Len(t, signer.ops, 1)
	assert.Equal(t, "custom_json", signer.ops[0].Type)
}

func TestSubscribeFailureLeavesCacheAlone(t *testing.T) {
	signer := &recordingSigner{err: &NetworkError{Cause: errors.New("timeout")}}
	signers, resolve := keychainOnly(signer)
	invalidator := &recordingInvalidator{}
	gateway := NewGateway(signers, resolve, invalidator)

	err := gateway.Subscribe(context.Background(), "alice", "hive-100")
	require.Error(t, err)
	assert.Empty(t, invalidator.invalidated)
}

func TestUnsubscribe(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	invalidator := &recordingInvalidator{}
	gateway := NewGateway(signers, resolve, invalidator)

	err := gateway.Unsubscribe(context.Background(), "alice", "hive-100")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, invalidator.invalidated)
}

func TestUnknownLoginMethod(t *testing.T) {
	gateway := NewGateway(
		map[LoginMethod]Signer{},
		func(username string) LoginMethod { return MethodDirectKey },
		nil,
	)

	err := gateway.Vote(context.Background(), VoteInput{
		Voter: "alice", Author: "bob", Permlink: "p", Weight: 100,
	})
	var auth *AuthError
	assert.True(t, errors.As(err, &auth))
}

func TestPublishWithBeneficiaries(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	gateway := NewGateway(signers, resolve, nil)

	err := gateway.Publish(context.Background(), PostInput{
		Author: "alice", Permlink: "post", Body: "hello world",
		Beneficiaries: []Beneficiary{{Account: "bob", Weight: 1000}},
	})
	require.NoError(t, err)
	require.Len(t, signer.ops, 2)
	assert.Equal(t, "comment", signer.ops[0].Type)
	assert.Equal(t, "comment_options", signer.ops[1].Type)
}

func TestPublishBeneficiaryCapExceeded(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	gateway := NewGateway(signers, resolve, nil)

	err := gateway.Publish(context.Background(), PostInput{
		Author: "alice", Permlink: "post", Body: "hello",
		Beneficiaries: []Beneficiary{
			{Account: "bob", Weight: 6000},
			{Account: "carol", Weight: 5000},
		},
	})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Zero(t, signer.calls)
}

func TestPublishEmptyBody(t *testing.T) {
	signer := &recordingSigner{}
	signers, resolve := keychainOnly(signer)
	gateway := NewGateway(signers, resolve, nil)

	err := gateway.Publish(context.Background(), PostInput{
		Author: "alice", Permlink: "post", Body: "   ",
	})
	var validation *ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestKeychainSignerSuccess(t *testing.T) {
	signer := NewKeychainSigner(func(username string, ops []Operation, authority Authority, callback func(KeychainResponse)) {
		callback(KeychainResponse{Success: true})
	})
	err := signer.Sign(context.Background(), "alice", []Operation{VoteOperation("alice", "bob", "p", 100)}, AuthorityPosting)
	assert.NoError(t, err)
}

func TestKeychainSignerCancelled(t *testing.T) {
	signer := NewKeychainSigner(func(username string, ops []Operation, authority Authority, callback func(KeychainResponse)) {
		callback(KeychainResponse{Cancelled: true})
	})
	err := signer.Sign(context.Background(), "alice", nil, AuthorityPosting)
	assert.True(t, IsCancelled(err))
}

func TestKeychainSignerAuthFailure(t *testing.T) {
	signer := NewKeychainSigner(func(username string, ops []Operation, authority Authority, callback func(KeychainResponse)) {
		callback(KeychainResponse{Error: "missing required posting authority"})
	})
	err := signer.Sign(context.Background(), "alice", nil, AuthorityPosting)
	var auth *AuthError
	assert.True(t, errors.As(err, &auth))
}

func TestDirectKeySignerNoKey(t *testing.T) {
	signer := NewDirectKeySigner(
		func(ops []Operation, keys map[Authority]string, callback func(error, interface{})) {
			t.Fatal("broadcast must not be reached without a key")
		},
		staticKeys{},
	)
	err := signer.Sign(context.Background(), "alice", nil, AuthorityPosting)
	var auth *AuthError
	assert.True(t, errors.As(err, &auth))
}

func TestDirectKeySignerErrFirstCallback(t *testing.T) {
	signer := NewDirectKeySigner(
		func(ops []Operation, keys map[Authority]string, callback func(error, interface{})) {
			assert.Equal(t, "5Kabc", keys[AuthorityPosting])
			callback(errors.New("connection reset"), nil)
		},
		staticKeys{"alice/posting": "5Kabc"},
	)
	err := signer.Sign(context.Background(), "alice", nil, AuthorityPosting)
	var network *NetworkError
	assert.True(t, errors.As(err, &network))
}

func TestDirectKeySignerSuccess(t *testing.T) {
	signer := NewDirectKeySigner(
		func(ops []Operation, keys map[Authority]string, callback func(error, interface{})) {
			callback(nil, map[string]interface{}{"id": "txid"})
		},
		staticKeys{"alice/posting": "5Kabc"},
	)
	err := signer.Sign(context.Background(), "alice", nil, AuthorityPosting)
	assert.NoError(t, err)
}

type staticKeys map[string]string

func (s staticKeys) PrivateKey(username string, authority Authority) string {
	return s[username+"/"+string(authority)]
}
