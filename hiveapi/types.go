package hiveapi

import (
	"encoding/json"

	"github.com/araddon/dateparse"

	"github.com/hivereader/hivereader/model"
)

// rawPost is the wire shape of a post/comment as the bridge API returns it.
// json_metadata arrives as an object from bridge endpoints but as an escaped
// string from condenser endpoints, so it stays a RawMessage here.
type rawPost struct {
	Author             string          `json:"author"`
	Permlink           string          `json:"permlink"`
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Category           string          `json:"category"`
	Community          string          `json:"community"`
	CommunityTitle     string          `json:"community_title"`
	Created            string          `json:"created"`
	JSONMetadata       json.RawMessage `json:"json_metadata"`
	PendingPayoutValue string          `json:"pending_payout_value"`
	Children           int             `json:"children"`
	ActiveVotes        []struct {
		Voter string `json:"voter"`
	} `json:"active_votes"`
	Stats *struct {
		TotalVotes int `json:"total_votes"`
	} `json:"stats"`
}

func (r *rawPost) toFeedItem() *model.FeedItem {
	item := &model.FeedItem{
		Author:         r.Author,
		Permlink:       r.Permlink,
		Title:          r.Title,
		Body:           r.Body,
		Category:       r.Category,
		Community:      r.Community,
		CommunityTitle: r.CommunityTitle,
		JSONMetadata:   string(r.JSONMetadata),
		PendingPayout:  r.PendingPayoutValue,
		Children:       r.Children,
	}

	if r.Stats != nil {
		item.VoteCount = r.Stats.TotalVotes
	} else {
		item.VoteCount = len(r.ActiveVotes)
	}

	// Node timestamps carry no zone suffix; dateparse handles both that and
	// any future ISO variants.
	if created, err := dateparse.ParseAny(r.Created); err == nil {
		item.CreatedAt = created
	}

	return item
}

func toFeedItems(raw []*rawPost) []*model.FeedItem {
	items := make([]*model.FeedItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, r.toFeedItem())
	}
	return items
}

// rawCommunity is the wire shape of bridge.list_communities entries.
type rawCommunity struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	About       string `json:"about"`
	Subscribers int    `json:"subscribers"`
	IsNSFW      bool   `json:"is_nsfw"`
}

func (r *rawCommunity) toRecord() *model.CommunityRecord {
	record := &model.CommunityRecord{
		Name:        r.Name,
		Title:       r.Title,
		About:       r.About,
		Subscribers: r.Subscribers,
		NSFW:        r.IsNSFW,
	}
	record.BuildSearchIndex()
	return record
}
