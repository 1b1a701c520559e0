// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "strings"

// Storage key layout. These names are an external contract shared with
// the portal UI; changing them orphans previously persisted documents.
const (
	// ReferralPrefix fronts per-scope referral request collections.
	ReferralPrefix = "referralRequests_"

	// CommentsPrefix fronts per-discussion comment collections.
	CommentsPrefix = "comments_"

	// DiscussionsKey holds the discussion index with derived reply counts.
	DiscussionsKey = "unifiedDiscussions"

	// PrefsSuffix trails per-feature preference documents.
	PrefsSuffix = "_prefs"
)

// ReferralKey returns the storage key for a scope's referral collection.
func ReferralKey(scopeID string) string {
	return ReferralPrefix + scopeID
}

// CommentsKey returns the storage key for a discussion's comment log.
func CommentsKey(discussionID string) string {
	return CommentsPrefix + discussionID
}

// PrefsKey returns the storage key for a feature's preference document.
func PrefsKey(feature string) string {
	return feature + PrefsSuffix
}

// ScopeFromKey extracts the scope ID from a referral key, or "" if the
// key is not a referral key.
func ScopeFromKey(key string) string {
	if scope, ok := strings.CutPrefix(key, ReferralPrefix); ok {
		return scope
	}
	return ""
}

// DiscussionFromKey extracts the discussion ID from a comments key, or ""
// if the key is not a comments key.
func DiscussionFromKey(key string) string {
	if id, ok := strings.CutPrefix(key, CommentsPrefix); ok {
		return id
	}
	return ""
}
