package model

/*

Cursor is an opaque pagination position carried forward unchanged between
page fetches.

Author:
Permlink:
	key of the last item of the previous batch, used by author/permlink
	style endpoints. Both empty means "start from the beginning".
Page: 1-based page number, used by page-numbered endpoints. Zero means the
	endpoint is author/permlink based.

A stale or invalid cursor must degrade to an empty page on the remote end,
never to an error.

*/
type Cursor struct {
	Author   string `json:"author,omitempty"`
	Permlink string `json:"permlink,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// IsZero returns true iff the cursor points at the beginning of a feed.
func (c Cursor) IsZero() bool {
	return c.Author == "" && c.Permlink == "" && c.Page == 0
}

// After returns the cursor advanced past the given item.
func (c Cursor) After(item *FeedItem) Cursor {
	next := Cursor{Author: item.Author, Permlink: item.Permlink}
	if c.Page > 0 {
		next = Cursor{Page: c.Page + 1}
	}
	return next
}
