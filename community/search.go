package community

import (
	"context"
	"sort"
	"strings"

	"github.com/hivereader/hivereader/model"
	"github.com/hivereader/hivereader/utils"
	Logger "github.com/hivereader/hivereader/utils/log"
)

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 20

// Search finds communities matching the query. The dedicated remote search
// endpoint is preferred; on failure or an empty result the cached full list
// is filtered locally using the precomputed lowercase search index. Exact
// name/title matches rank first, everything else by descending subscriber
// count.
func (c *Cache) Search(ctx context.Context, query string, limit int) ([]*model.CommunityRecord, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.CommunityRecord{}, nil
	}

	remote, err := c.fetcher.SearchCommunities(ctx, query, limit)
	if err != nil {
		Logger.Log.Warn("remote community search failed, falling back to local filter: ", err)
	} else if len(remote) > 0 {
		return remote[:utils.Min(len(remote), limit)], nil
	}

	all, err := c.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return rankMatches(all, query, limit), nil
}

func rankMatches(records []*model.CommunityRecord, query string, limit int) []*model.CommunityRecord {
	lowered := strings.ToLower(query)

	matches := []*model.CommunityRecord{}
	for _, record := range records {
		index := record.SearchIndex
		if index == "" {
			index = strings.ToLower(record.Name + " " + record.Title + " " + record.About)
		}
		if strings.Contains(index, lowered) {
			matches = append(matches, record)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		iExact := isExactMatch(matches[i], lowered)
		jExact := isExactMatch(matches[j], lowered)
		if iExact != jExact {
			return iExact
		}
		return matches[i].Subscribers > matches[j].Subscribers
	})

	return matches[:utils.Min(len(matches), limit)]
}

func isExactMatch(record *model.CommunityRecord, lowered string) bool {
	return strings.ToLower(record.Name) == lowered || strings.ToLower(record.Title) == lowered
}
