package model

import (
	"strings"
	"unicode"
)

// CommunityPrefix is the prefix every canonical community name carries.
const CommunityPrefix = "hive-"

/*

CommunityRecord is the cached metadata of one community.

Name: canonical community name, "hive-<digits>", the identity of the record
Title: display title
About: short description shown in community headers
Subscribers: subscriber count at fetch time
NSFW: community flagged as not safe for work
SearchIndex: precomputed lowercase "name title about" string used for
	local substring search when the remote search endpoint is unavailable
IsBasic: true iff the record is a synthesized placeholder (derived from the
	slug alone, not fetched from the API); consumers must not treat basic
	records as authoritative

*/
type CommunityRecord struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	About       string `json:"about,omitempty"`
	Subscribers int    `json:"subscribers"`
	NSFW        bool   `json:"is_nsfw"`
	SearchIndex string `json:"-"`
	IsBasic     bool   `json:"is_basic,omitempty"`
}

// BuildSearchIndex populates SearchIndex from the record's fields.
func (c *CommunityRecord) BuildSearchIndex() {
	c.SearchIndex = strings.ToLower(c.Name + " " + c.Title + " " + c.About)
}

// NewBasicCommunityRecord synthesizes a placeholder record for a community
// that is absent from the full list, deriving a readable title from the slug.
func NewBasicCommunityRecord(name string) *CommunityRecord {
	record := &CommunityRecord{
		Name:    name,
		Title:   TitleFromSlug(name),
		IsBasic: true,
	}
	record.BuildSearchIndex()
	return record
}

// TitleFromSlug turns "hive-167922" into "Hive 167922" and "my-community"
// into "My Community". Used only for placeholder records.
func TitleFromSlug(slug string) string {
	parts := strings.Split(strings.TrimPrefix(slug, CommunityPrefix), "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		runes := []rune(p)
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	title := strings.TrimSpace(strings.Join(parts, " "))
	if strings.HasPrefix(slug, CommunityPrefix) {
		title = strings.TrimSpace("Hive " + title)
	}
	return title
}

// SubscriptionSet is the set of communities one user subscribes to. Both the
// prefixed ("hive-123") and unprefixed ("123") forms are stored so lookups
// are O(1) either way.
type SubscriptionSet map[string]bool

// NewSubscriptionSet builds a set from the canonical community names.
func NewSubscriptionSet(names []string) SubscriptionSet {
	set := SubscriptionSet{}
	for _, name := range names {
		set.Add(name)
	}
	return set
}

// Add inserts both name forms into the set.
func (s SubscriptionSet) Add(name string) {
	s[name] = true
	s[strings.TrimPrefix(name, CommunityPrefix)] = true
}

// Contains reports membership for either name form.
func (s SubscriptionSet) Contains(name string) bool {
	return s[name] || s[strings.TrimPrefix(name, CommunityPrefix)]
}

// Clone returns an independent copy of the set.
func (s SubscriptionSet) Clone() SubscriptionSet {
	out := make(SubscriptionSet, len(s))
	for name := range s {
		out[name] = true
	}
	return out
}

// Names returns the canonical (prefixed) community names in the set.
func (s SubscriptionSet) Names() []string {
	names := []string{}
	for name := range s {
		if strings.HasPrefix(name, CommunityPrefix) {
			names = append(names, name)
		}
	}
	return names
}
