// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discussion

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AlmaLinkHQ/AlmaLinkCore/pkg/logging"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/bus"
	"github.com/AlmaLinkHQ/AlmaLinkCore/services/localdata/store"
)

// Ledger owns the comment log for one execution context.
//
// Thread Safety: Ledger is safe for concurrent use.
type Ledger struct {
	st       *store.Store
	bus      *bus.Bus
	validate *validator.Validate
	logger   *logging.Logger

	// now is injectable for deterministic comment IDs in tests.
	now func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for IDs and timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a comment ledger.
func NewLedger(st *store.Store, b *bus.Bus, logger *logging.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = logging.Default()
	}
	l := &Ledger{
		st:       st,
		bus:      b,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With("component", "comment_ledger"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddComment appends one comment and recomputes the owning discussion's
// reply count.
//
// Description:
//
//	The comment write is the mutation and is all-or-nothing. The reply
//	count is derived: it is set to the new total length of the stored
//	log, never incremented, so a count that missed an update heals on
//	the next append.
func (l *Ledger) AddComment(ctx context.Context, discussionID, author, content string) (Comment, error) {
	now := l.now().UTC()
	comment := Comment{
		ID:           NewCommentID(now),
		DiscussionID: discussionID,
		Author:       author,
		Content:      content,
		CreatedAt:    now,
	}
	if err := l.validate.Struct(comment); err != nil {
		return Comment{}, fmt.Errorf("%w: %w", ErrInvalidComment, err)
	}

	key := store.CommentsKey(discussionID)
	var comments []Comment
	if _, err := l.st.Get(ctx, key, &comments); err != nil {
		return Comment{}, fmt.Errorf("add comment: %w", err)
	}
	comments = append(comments, comment)

	if err := l.st.Set(ctx, key, comments); err != nil {
		return Comment{}, fmt.Errorf("add comment: %w", err)
	}

	if err := l.recomputeReplyCount(ctx, discussionID, len(comments)); err != nil {
		// The comment is durable; the derived count heals on the next
		// append.
		l.logger.Warn("reply count update failed", "discussion_id", discussionID, "error", err.Error())
	}

	l.publish(discussionID, ActionComment, comment.ID)
	l.logger.Info("comment appended", "discussion_id", discussionID, "comment_id", comment.ID)
	return comment, nil
}

// LikeComment increments one comment's like counter by exactly one.
// There is no per-actor de-duplication: repeated calls from the same
// actor increment again each time. That is the portal's current,
// documented behavior: an anonymous counter, not a reaction set.
func (l *Ledger) LikeComment(ctx context.Context, discussionID, commentID string) error {
	key := store.CommentsKey(discussionID)

	var comments []Comment
	found, err := l.st.Get(ctx, key, &comments)
	if err != nil {
		return fmt.Errorf("like comment: %w", err)
	}
	if !found {
		return fmt.Errorf("like %s in discussion %s: %w", commentID, discussionID, ErrCommentNotFound)
	}

	liked := false
	for i := range comments {
		if comments[i].ID == commentID {
			comments[i].Likes++
			liked = true
			break
		}
	}
	if !liked {
		return fmt.Errorf("like %s in discussion %s: %w", commentID, discussionID, ErrCommentNotFound)
	}

	if err := l.st.Set(ctx, key, comments); err != nil {
		return fmt.Errorf("like comment: %w", err)
	}

	l.publish(discussionID, ActionLike, commentID)
	return nil
}

// GetComments returns the discussion's comments in append order (the
// order successful AddComment calls were observed by this context) and
// never re-sorts them.
//
// Description:
//
//	Store failures never escape a UI boundary: on a backend error the
//	log is returned empty after logging, not as an error.
func (l *Ledger) GetComments(ctx context.Context, discussionID string) []Comment {
	var comments []Comment
	if _, err := l.st.Get(ctx, store.CommentsKey(discussionID), &comments); err != nil {
		l.logger.Error("comment read degraded to empty", "discussion_id", discussionID, "error", err.Error())
		return nil
	}
	return comments
}

// ReplyCount returns the discussion's derived reply count, or 0 when
// the discussion is unknown.
func (l *Ledger) ReplyCount(ctx context.Context, discussionID string) int {
	var discussions []Discussion
	if _, err := l.st.Get(ctx, store.DiscussionsKey, &discussions); err != nil {
		l.logger.Error("discussion index read degraded", "error", err.Error())
		return 0
	}
	for _, d := range discussions {
		if d.ID == discussionID {
			return d.ReplyCount
		}
	}
	return 0
}

// recomputeReplyCount pins the index entry to the authoritative total.
func (l *Ledger) recomputeReplyCount(ctx context.Context, discussionID string, total int) error {
	var discussions []Discussion
	if _, err := l.st.Get(ctx, store.DiscussionsKey, &discussions); err != nil {
		return err
	}

	updated := false
	for i := range discussions {
		if discussions[i].ID == discussionID {
			discussions[i].ReplyCount = total
			updated = true
			break
		}
	}
	if !updated {
		discussions = append(discussions, Discussion{ID: discussionID, ReplyCount: total})
	}

	return l.st.Set(ctx, store.DiscussionsKey, discussions)
}

func (l *Ledger) publish(discussionID, action, commentID string) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(bus.TopicDiscussions, Change{
		DiscussionID: discussionID,
		Action:       action,
		CommentID:    commentID,
	})
}
