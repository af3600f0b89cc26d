package model

import (
	"time"
)

/*

FeedItem is a single post or comment fetched from the remote content API.

Author:
Permlink:
	the pair (Author, Permlink) is the only globally unique key of an item
	and is used for de-duplication across pagination batches.

Title: item's title in plain text, empty for comments
Body: raw markdown/HTML mix exactly as stored on chain
Category: top-level category or community the item was posted to
Community: canonical community name ("hive-<digits>") if posted to one
CommunityTitle: display title of the community, enriched from the
	community cache after fetch
JSONMetadata: freeform metadata the author attached at publish time
	(tags, image hints, app name); never trusted to be well formed

VoteCount: number of votes currently on the item
PendingPayout: pending reward payout, e.g. "1.234 HBD"
Children: number of direct and nested replies

ImageURL: resolved thumbnail url, enriched by the content pipeline
Excerpt: short plain text preview, enriched by the content pipeline

CreatedAt: time the item was created on chain

*/
type FeedItem struct {
	Author         string `json:"author"`
	Permlink       string `json:"permlink"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Category       string `json:"category"`
	Community      string `json:"community,omitempty"`
	CommunityTitle string `json:"community_title,omitempty"`
	JSONMetadata   string `json:"json_metadata"`
	VoteCount      int    `json:"vote_count"`
	PendingPayout  string `json:"pending_payout"`
	Children       int    `json:"children"`
	ImageURL       string `json:"image_url,omitempty"`
	Excerpt        string `json:"excerpt,omitempty"`
	CreatedAt      time.Time
}

// Key returns the de-duplication key of the item. Two items are the same
// post iff their keys are equal.
func (f *FeedItem) Key() string {
	return f.Author + "/" + f.Permlink
}
