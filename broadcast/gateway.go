package broadcast

import (
	"context"
	"fmt"
	"strings"

	Logger "github.com/hivereader/hivereader/utils/log"
)

// LoginMethod records how the current user authenticated, which decides the
// signing transport used for their write operations.
type LoginMethod string

const (
	MethodKeychain  LoginMethod = "keychain"
	MethodDirectKey LoginMethod = "key"
)

// maxBeneficiaryWeight caps the total reward split, in basis points.
const maxBeneficiaryWeight = 10000

// LoginMethodResolver returns the login method recorded for a username.
type LoginMethodResolver func(username string) LoginMethod

// SubscriptionInvalidator drops a user's cached subscription set. Satisfied
// by community.Cache.
type SubscriptionInvalidator interface {
	Invalidate(username string)
}

// VoteInput is one vote request. Weight is in basis points, -10000..10000.
type VoteInput struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int    `json:"weight"`
}

// PostInput is one publish request.
type PostInput struct {
	Author         string        `json:"author"`
	Permlink       string        `json:"permlink"`
	ParentAuthor   string        `json:"parent_author"`
	ParentPermlink string        `json:"parent_permlink"`
	Title          string        `json:"title"`
	Body           string        `json:"body"`
	JSONMetadata   string        `json:"json_metadata"`
	Beneficiaries  []Beneficiary `json:"beneficiaries,omitempty"`
}

/*

Gateway issues write operations (votes, subscriptions, publishing) through
whichever signing transport matches the user's login method, normalizing
both transports into plain error returns with the taxonomy of errors.go.

Validation happens before any dispatch: a zero-weight vote or an oversized
beneficiary split never reaches a signer. Successful subscribe/unsubscribe
calls invalidate that user's cached subscription set so the next read
reflects the change; failed ones mutate nothing.

*/
type Gateway struct {
	signers       map[LoginMethod]Signer
	resolveMethod LoginMethodResolver
	subscriptions SubscriptionInvalidator
}

func NewGateway(signers map[LoginMethod]Signer, resolve LoginMethodResolver, subscriptions SubscriptionInvalidator) *Gateway {
	return &Gateway{
		signers:       signers,
		resolveMethod: resolve,
		subscriptions: subscriptions,
	}
}

func (g *Gateway) signerFor(username string) (Signer, error) {
	method := g.resolveMethod(username)
	signer, ok := g.signers[method]
	if !ok {
		return nil, &AuthError{Reason: fmt.Sprintf("no signing transport for login method %q", method)}
	}
	return signer, nil
}

// Vote casts a vote on the (author, permlink) item.
func (g *Gateway) Vote(ctx context.Context, input VoteInput) error {
	if input.Weight == 0 {
		return &ValidationError{Reason: "vote weight must not be zero"}
	}
	if input.Weight < -10000 || input.Weight > 10000 {
		return &ValidationError{Reason: "vote weight out of range"}
	}
	if input.Voter == "" || input.Author == "" || input.Permlink == "" {
		return &ValidationError{Reason: "voter, author and permlink are required"}
	}

	signer, err := g.signerFor(input.Voter)
	if err != nil {
		return err
	}
	op := VoteOperation(input.Voter, input.Author, input.Permlink, input.Weight)
	if err := signer.Sign(ctx, input.Voter, []Operation{op}, AuthorityPosting); err != nil {
		return err
	}
	Logger.Log.Info("vote broadcast for @", input.Author, "/", input.Permlink, " by ", input.Voter)
	return nil
}

// Subscribe joins the user to a community.
func (g *Gateway) Subscribe(ctx context.Context, username, community string) error {
	return g.updateSubscription(ctx, username, community, SubscribeOperation(username, community))
}

// Unsubscribe removes the user from a community.
func (g *Gateway) Unsubscribe(ctx context.Context, username, community string) error {
	return g.updateSubscription(ctx, username, community, UnsubscribeOperation(username, community))
}

func (g *Gateway) updateSubscription(ctx context.Context, username, community string, op Operation) error {
	if username == "" || community == "" {
		return &ValidationError{Reason: "username and community are required"}
	}

	signer, err := g.signerFor(username)
	if err != nil {
		return err
	}
	if err := signer.Sign(ctx, username, []Operation{op}, AuthorityPosting); err != nil {
		return err
	}

	// Only a successful broadcast invalidates; the cached set stays intact
	// on any failure above.
	if g.subscriptions != nil {
		g.subscriptions.Invalidate(username)
	}
	return nil
}

// Publish broadcasts a new post or reply, with optional beneficiaries.
func (g *Gateway) Publish(ctx context.Context, input PostInput) error {
	if input.Author == "" || input.Permlink == "" {
		return &ValidationError{Reason: "author and permlink are required"}
	}
	if strings.TrimSpace(input.Body) == "" {
		return &ValidationError{Reason: "body must not be empty"}
	}
	if err := validateBeneficiaries(input.Beneficiaries); err != nil {
		return err
	}

	signer, err := g.signerFor(input.Author)
	if err != nil {
		return err
	}

	ops := []Operation{CommentOperation(
		input.Author, input.Permlink,
		input.ParentAuthor, input.ParentPermlink,
		input.Title, input.Body, input.JSONMetadata,
	)}
	if len(input.Beneficiaries) > 0 {
		ops = append(ops, CommentOptionsOperation(input.Author, input.Permlink, input.Beneficiaries))
	}
	return signer.Sign(ctx, input.Author, ops, AuthorityPosting)
}

func validateBeneficiaries(beneficiaries []Beneficiary) error {
	total := 0
	for _, b := range beneficiaries {
		if b.Account == "" {
			return &ValidationError{Reason: "beneficiary account must not be empty"}
		}
		if b.Weight <= 0 {
			return &ValidationError{Reason: "beneficiary weight must be positive"}
		}
		total += b.Weight
	}
	if total > maxBeneficiaryWeight {
		return &ValidationError{Reason: "beneficiary weights exceed 100%"}
	}
	return nil
}
