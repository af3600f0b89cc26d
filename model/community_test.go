package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromSlug(t *testing.T) {
	assert.Equal(t, "Hive 167922", TitleFromSlug("hive-167922"))
	assert.Equal(t, "My Community", TitleFromSlug("my-community"))
}

func TestNewBasicCommunityRecord(t *testing.T) {
	record := NewBasicCommunityRecord("hive-123")
	assert.True(t, record.IsBasic)
	assert.Equal(t, "Hive 123", record.Title)
	assert.Zero(t, record.Subscribers)
	assert.NotEmpty(t, record.SearchIndex)
}

func TestSubscriptionSetBothForms(t *testing.T) {
	set := NewSubscriptionSet([]string{"hive-100", "hive-200"})
	assert.True(t, set.Contains("hive-100"))
	assert.True(t, set.Contains("100"))
	assert.True(t, set.Contains("hive-200"))
	assert.False(t, set.Contains("hive-300"))
	assert.ElementsMatch(t, []string{"hive-100", "hive-200"}, set.Names())
}

func TestSubscriptionSetClone(t *testing.T) {
	set := NewSubscriptionSet([]string{"hive-100"})
	clone := set.Clone()
	clone.Add("hive-200")

	assert.True(t, clone.Contains("hive-200"))
	assert.False(t, set.Contains("hive-200"))
}

func TestFeedItemKey(t *testing.T) {
	item := &FeedItem{Author: "alice", Permlink: "my-post"}
	assert.Equal(t, "alice/my-post", item.Key())
}

func TestCursorAfter(t *testing.T) {
	next := Cursor{}.After(&FeedItem{Author: "alice", Permlink: "p1"})
	assert.Equal(t, Cursor{Author: "alice", Permlink: "p1"}, next)

	paged := Cursor{Page: 2}.After(&FeedItem{Author: "alice", Permlink: "p1"})
	assert.Equal(t, Cursor{Page: 3}, paged)

	assert.True(t, Cursor{}.IsZero())
	assert.False(t, next.IsZero())
}
