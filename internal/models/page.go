package models

import (
	"strings"
	"time"
)

// PageTokenEntry binds an ordinal page number of a collection to the cursor token that fetches it.
type PageTokenEntry struct {
	CollectionID string `json:"collection_id"`
	Page         int    `json:"page"`
	Token        string `json:"token"`
}

// Item is a single playlist entry.
type Item struct {
	ID             string `json:"id"`               // video id, the identity used for correlation
	PlaylistItemID string `json:"playlist_item_id"` // id of the entry inside the playlist
	Title          string `json:"title"`
	ChannelTitle   string `json:"channel_title,omitempty"`
	Position       int    `json:"position"`
}

// Page is one materialized page of a remote collection.
//
// Pages are what the page cache stores; they are never authoritative for addressing.
type Page struct {
	CollectionID   string    `json:"collection_id"`
	Number         int       `json:"number"`
	Items          []Item    `json:"items"`
	NextToken      string    `json:"next_token,omitempty"`
	PrevToken      string    `json:"prev_token,omitempty"`
	TotalResults   int       `json:"total_results"`
	ResultsPerPage int       `json:"results_per_page"`
	FetchedAt      time.Time `json:"fetched_at"`

	// TokenErrors counts token writes that failed while this page was fetched.
	TokenErrors int `json:"-"`
}

// HasNext reports whether the remote API exposed a cursor to a following page.
func (p *Page) HasNext() bool { return p.NextToken != "" }

// Candidate is a search service result.
type Candidate struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Album   string   `json:"album,omitempty"`
	URI     string   `json:"uri,omitempty"`
}

// Label renders the candidate as "artist, artist - name", the form item titles are compared against.
func (c Candidate) Label() string {
	if len(c.Artists) == 0 {
		return c.Name
	}
	return strings.Join(c.Artists, ", ") + " - " + c.Name
}
