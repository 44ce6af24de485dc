package cache

import (
	"encoding/json"
	"fmt"
)

// Key builders map domain concepts to canonical cache keys. Keys are the
// layer's persisted-state layout: changing a builder's composition is a
// breaking change for live entries, mitigated only by bounded TTLs.

func UserKey(userID string) string {
	return "user:" + userID
}

func UserPreferencesKey(userID string) string {
	return "user:" + userID + ":preferences"
}

func GhostKey(ghostID string) string {
	return "ghost:" + ghostID
}

func GhostsByCategoryKey(category string, page int) string {
	return fmt.Sprintf("ghosts:category:%s:page:%d", category, page)
}

// GhostSearchKey composes the search result key from the query and the
// canonicalized filter set, so logically equal searches share one entry.
func GhostSearchKey(query string, filters map[string]interface{}) string {
	return "ghosts:search:" + query + ":" + CanonicalizeFilters(filters)
}

func StoryKey(storyID string) string {
	return "story:" + storyID
}

func StoriesByGhostKey(ghostID string) string {
	return "stories:ghost:" + ghostID
}

func ReadingProgressKey(userID, storyID string) string {
	return "progress:" + userID + ":" + storyID
}

func RecommendationsKey(userID string) string {
	return "recommendations:" + userID
}

func BookmarksKey(userID string) string {
	return "bookmarks:" + userID
}

func SessionKey(token string) string {
	return "session:" + token
}

func RateLimitKey(identifier string) string {
	return "ratelimit:" + identifier
}

// ResponseKey scopes cached HTTP responses by caller identity so a
// personalized body is never replayed to another user. Anonymous callers
// share the "anon" scope.
func ResponseKey(identity, fullPath string) string {
	if identity == "" {
		identity = "anon"
	}
	return "response:" + identity + ":" + fullPath
}

// Pattern builders for bulk invalidation.

func GhostSearchPattern() string {
	return "ghosts:search:*"
}

func GhostCategoryPattern() string {
	return "ghosts:category:*"
}

// ResponsePattern matches cached responses for every identity under a path
// prefix, e.g. ResponsePattern("/api/ghosts") covers list and detail pages.
func ResponsePattern(pathPrefix string) string {
	return "response:*:" + pathPrefix + "*"
}

// CanonicalizeFilters renders a filter object in one deterministic textual
// form. encoding/json sorts map keys at every level, so differently-ordered
// but logically equal filter maps produce the same string.
func CanonicalizeFilters(filters map[string]interface{}) string {
	if len(filters) == 0 {
		return "{}"
	}
	data, err := json.Marshal(filters)
	if err != nil {
		// Filters are plain data; marshal failure means a programming error.
		return "{}"
	}
	return string(data)
}
