package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID            uuid.UUID `json:"id"`
	User          User      `json:"user"`
	Caption       string    `json:"caption"`
	MediaURLs     []string  `json:"media_urls"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// PostPage is one page of a feed. NextPage is 0 when there is no next page.
type PostPage struct {
	Posts    []Post `json:"posts"`
	NextPage int    `json:"next_page,omitempty"`
	Count    int    `json:"count"`
}

func (p PostPage) HasMore() bool {
	return p.NextPage > 0
}
