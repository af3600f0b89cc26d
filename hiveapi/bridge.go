package hiveapi

import (
	"context"

	"github.com/hivereader/hivereader/model"
)

// communityPageSize is the batch size for paging through the full community
// list; the bridge caps list_communities at 100 per call.
const communityPageSize = 100

// RankedPosts returns one page of a ranked feed ("trending", "hot",
// "created", ...) for an optional tag or community. Satisfies
// feed.FetchPageFunc when bound with a sort and tag.
func (c *Client) RankedPosts(ctx context.Context, sort, tag string, cursor model.Cursor, limit int) ([]*model.FeedItem, error) {
	params := map[string]interface{}{
		"sort":  sort,
		"tag":   tag,
		"limit": limit,
	}
	if !cursor.IsZero() {
		params["start_author"] = cursor.Author
		params["start_permlink"] = cursor.Permlink
	}

	var raw []*rawPost
	if err := c.Call(ctx, "bridge.get_ranked_posts", params, &raw); err != nil {
		return nil, err
	}
	return toFeedItems(raw), nil
}

// RankedPostsFetcher binds sort and tag into a page-fetch function with the
// loader's collaborator signature.
func (c *Client) RankedPostsFetcher(sort, tag string) func(context.Context, model.Cursor, int) ([]*model.FeedItem, error) {
	return func(ctx context.Context, cursor model.Cursor, limit int) ([]*model.FeedItem, error) {
		return c.RankedPosts(ctx, sort, tag, cursor, limit)
	}
}

// AccountPosts returns one page of an account-scoped feed ("blog", "posts",
// "comments", "replies", "feed").
func (c *Client) AccountPosts(ctx context.Context, account, sort string, cursor model.Cursor, limit int) ([]*model.FeedItem, error) {
	params := map[string]interface{}{
		"account": account,
		"sort":    sort,
		"limit":   limit,
	}
	if !cursor.IsZero() {
		params["start_author"] = cursor.Author
		params["start_permlink"] = cursor.Permlink
	}

	var raw []*rawPost
	if err := c.Call(ctx, "bridge.get_account_posts", params, &raw); err != nil {
		return nil, err
	}
	return toFeedItems(raw), nil
}

// AccountPostsFetcher binds account and sort into a page-fetch function.
func (c *Client) AccountPostsFetcher(account, sort string) func(context.Context, model.Cursor, int) ([]*model.FeedItem, error) {
	return func(ctx context.Context, cursor model.Cursor, limit int) ([]*model.FeedItem, error) {
		return c.AccountPosts(ctx, account, sort, cursor, limit)
	}
}

// Discussion returns a post and its whole comment tree, flattened.
func (c *Client) Discussion(ctx context.Context, author, permlink string) ([]*model.FeedItem, error) {
	params := map[string]interface{}{
		"author":   author,
		"permlink": permlink,
	}

	// bridge.get_discussion keys the flat map by "author/permlink"
	var raw map[string]*rawPost
	if err := c.Call(ctx, "bridge.get_discussion", params, &raw); err != nil {
		return nil, err
	}

	items := make([]*model.FeedItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, r.toFeedItem())
	}
	return items, nil
}

// ListCommunities pages through the full community list. Implements part of
// community.Fetcher.
func (c *Client) ListCommunities(ctx context.Context) ([]*model.CommunityRecord, error) {
	records := []*model.CommunityRecord{}
	last := ""
	for {
		params := map[string]interface{}{
			"limit": communityPageSize,
		}
		if last != "" {
			params["last"] = last
		}

		var raw []*rawCommunity
		if err := c.Call(ctx, "bridge.list_communities", params, &raw); err != nil {
			return nil, err
		}
		for _, r := range raw {
			records = append(records, r.toRecord())
		}
		if len(raw) < communityPageSize {
			return records, nil
		}
		last = raw[len(raw)-1].Name
	}
}

// SearchCommunities queries the dedicated remote search. Implements part of
// community.Fetcher.
func (c *Client) SearchCommunities(ctx context.Context, query string, limit int) ([]*model.CommunityRecord, error) {
	params := map[string]interface{}{
		"query": query,
		"limit": limit,
	}

	var raw []*rawCommunity
	if err := c.Call(ctx, "bridge.list_communities", params, &raw); err != nil {
		return nil, err
	}

	records := make([]*model.CommunityRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, r.toRecord())
	}
	return records, nil
}

// ListSubscriptions returns the community names one account subscribes to.
// Implements part of community.Fetcher.
func (c *Client) ListSubscriptions(ctx context.Context, username string) ([]string, error) {
	params := map[string]interface{}{
		"account": username,
	}

	// each entry is [name, title, role, role_title]
	var raw [][]interface{}
	if err := c.Call(ctx, "bridge.list_all_subscriptions", params, &raw); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(raw))
	for _, entry := range raw {
		if len(entry) == 0 {
			continue
		}
		if name, ok := entry[0].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// AccountExists checks whether an account name is registered on chain.
func (c *Client) AccountExists(ctx context.Context, username string) (bool, error) {
	var raw []map[string]interface{}
	if err := c.Call(ctx, "condenser_api.get_accounts", [][]string{{username}}, &raw); err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}
