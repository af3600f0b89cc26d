package broadcast

import (
	"encoding/json"
)

// Authority is the key level an operation must be signed with.
type Authority string

const (
	AuthorityPosting Authority = "posting"
	AuthorityActive  Authority = "active"
)

// Operation is one blockchain operation in wire shape: a type name plus a
// freeform payload, serialized as the [name, payload] pair the node expects.
type Operation struct {
	Type    string
	Payload map[string]interface{}
}

// MarshalJSON emits the ["type", {payload}] tuple form.
func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{o.Type, o.Payload})
}

// VoteOperation builds a vote op. Weight is in basis points, -10000..10000.
func VoteOperation(voter, author, permlink string, weight int) Operation {
	return Operation{
		Type: "vote",
		Payload: map[string]interface{}{
			"voter":    voter,
			"author":   author,
			"permlink": permlink,
			"weight":   weight,
		},
	}
}

// subscribeAction builds the community custom_json op shared by subscribe
// and unsubscribe.
func subscribeAction(action, username, community string) Operation {
	inner, _ := json.Marshal([]interface{}{
		action,
		map[string]string{"community": community},
	})
	return Operation{
		Type: "custom_json",
		Payload: map[string]interface{}{
			"required_auths":         []string{},
			"required_posting_auths": []string{username},
			"id":                     "community",
			"json":                   string(inner),
		},
	}
}

// SubscribeOperation builds the custom_json op that subscribes username to
// the community.
func SubscribeOperation(username, community string) Operation {
	return subscribeAction("subscribe", username, community)
}

// UnsubscribeOperation builds the custom_json op that removes username's
// subscription to the community.
func UnsubscribeOperation(username, community string) Operation {
	return subscribeAction("unsubscribe", username, community)
}

// Beneficiary is one reward-split recipient configured on a post at publish
// time. Weight is in basis points of the total payout.
type Beneficiary struct {
	Account string `json:"account"`
	Weight  int    `json:"weight"`
}

// CommentOperation builds the comment op that publishes a post or reply.
func CommentOperation(author, permlink, parentAuthor, parentPermlink, title, body, jsonMetadata string) Operation {
	return Operation{
		Type: "comment",
		Payload: map[string]interface{}{
			"parent_author":   parentAuthor,
			"parent_permlink": parentPermlink,
			"author":          author,
			"permlink":        permlink,
			"title":           title,
			"body":            body,
			"json_metadata":   jsonMetadata,
		},
	}
}

// CommentOptionsOperation attaches beneficiaries to a freshly published post.
func CommentOptionsOperation(author, permlink string, beneficiaries []Beneficiary) Operation {
	return Operation{
		Type: "comment_options",
		Payload: map[string]interface{}{
			"author":                 author,
			"permlink":               permlink,
			"max_accepted_payout":    "1000000.000 HBD",
			"percent_hbd":            10000,
			"allow_votes":            true,
			"allow_curation_rewards": true,
			"extensions": []interface{}{
				[]interface{}{0, map[string]interface{}{"beneficiaries": beneficiaries}},
			},
		},
	}
}
