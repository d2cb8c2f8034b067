package domain

import (
	"strings"
	"time"
)

// Comment stores one authored note attached to an issue.
type Comment struct {
	ID        string
	Author    string
	Body      string
	CreatedAt time.Time
}

// CommentInput holds input values for comment creation.
type CommentInput struct {
	ID     string
	Author string
	Body   string
}

// NewComment constructs a normalized comment.
func NewComment(in CommentInput, now time.Time) (Comment, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return Comment{}, ErrInvalidKey
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return Comment{}, ErrInvalidBody
	}
	author := strings.TrimSpace(in.Author)
	if author == "" {
		return Comment{}, ErrInvalidAuthor
	}
	return Comment{
		ID:        in.ID,
		Author:    author,
		Body:      body,
		CreatedAt: now.UTC(),
	}, nil
}
