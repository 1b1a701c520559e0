// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package discussion implements the append-only comment ledger for the
// AlmaLink local-first data layer.
//
// Comments are immutable once appended, except for their monotonically
// increasing like counter. The owning discussion's reply count is a
// derived value: it is recomputed from the stored comment log on every
// append, never incremented independently, so it can not drift.
package discussion

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCommentNotFound is returned when a like names a comment absent
	// from the discussion's log.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrInvalidComment is returned when comment input fails validation.
	ErrInvalidComment = errors.New("invalid comment")
)

// Comment is one immutable entry in a discussion's reply log. JSON field
// names are the persisted storage contract shared with the portal UI.
type Comment struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussionId"`
	Author       string    `json:"author" validate:"required"`
	Content      string    `json:"content" validate:"required"`
	Likes        int       `json:"likes" validate:"gte=0"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Discussion is the index entry owned by the discussion feature; this
// layer only maintains its derived ReplyCount.
type Discussion struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	ReplyCount int    `json:"replyCount"`
}

// Change is the advisory bus payload for ledger mutations. Handlers
// re-read the comment log; this is a cue, not a delta.
type Change struct {
	DiscussionID string `json:"discussionId"`
	Action       string `json:"action"`
	CommentID    string `json:"commentId"`
}

// Actions carried in Change payloads.
const (
	ActionComment = "comment"
	ActionLike    = "like"
)

// NewCommentID generates an identity resistant to collision across
// concurrent writers in different contexts: a millisecond timestamp for
// rough ordering plus a random suffix for uniqueness.
func NewCommentID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
