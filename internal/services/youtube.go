// YouTube Data API v3 implementation of [CollectionSource]
//
// Response types based on https://developers.google.com/youtube/v3/docs/playlistItems/list
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"
	maxYTPageSize    = 50
)

// youtubeAuthReasons are 403 reasons that mean the credential itself was refused.
var youtubeAuthReasons = map[string]bool{
	"authError":               true,
	"forbidden":               true,
	"insufficientPermissions": true,
}

// YouTubePlaylistItem is one entry of a playlistItems list response.
type YouTubePlaylistItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title                  string `json:"title"`
		ChannelTitle           string `json:"channelTitle"`
		VideoOwnerChannelTitle string `json:"videoOwnerChannelTitle"`
		Position               int    `json:"position"`
		ResourceID             struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// YouTubePageInfo carries the collection total the drift check relies on.
type YouTubePageInfo struct {
	TotalResults   int `json:"totalResults"`
	ResultsPerPage int `json:"resultsPerPage"`
}

// YouTubePlaylistItemsResponse is the playlistItems list envelope.
type YouTubePlaylistItemsResponse struct {
	Kind          string                `json:"kind"`
	NextPageToken string                `json:"nextPageToken"`
	PrevPageToken string                `json:"prevPageToken"`
	PageInfo      *YouTubePageInfo      `json:"pageInfo"`
	Items         []YouTubePlaylistItem `json:"items"`
}

// YouTubeService implements [CollectionSource] for YouTube playlists.
type YouTubeService struct {
	api    *apiClient
	apiKey string
}

// NewYouTubeService creates a client from the configured credentials.
//
// At least one of the API key or the access token must be set.
func NewYouTubeService(ctx context.Context, cfg shared.YouTubeConfig, timeout time.Duration) (*YouTubeService, error) {
	if cfg.APIKey == "" && cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: youtube api_key or access_token", shared.ErrMissingCredentials)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		api:    newAPIClient(baseURL, bearerClient(ctx, cfg.AccessToken), timeout),
		apiKey: cfg.APIKey,
	}, nil
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// FetchPage calls GET /playlistItems for one page of playlistID.
func (y *YouTubeService) FetchPage(ctx context.Context, playlistID, token string, pageSize int) (*models.Page, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if pageSize <= 0 || pageSize > maxYTPageSize {
		pageSize = maxYTPageSize
	}

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("playlistId", playlistID)
	query.Set("maxResults", strconv.Itoa(pageSize))
	if token != "" {
		query.Set("pageToken", token)
	}
	if y.apiKey != "" {
		query.Set("key", y.apiKey)
	}

	var resp YouTubePlaylistItemsResponse
	if err := y.api.get(ctx, "/playlistItems", query, &resp); err != nil {
		return nil, y.mapError(playlistID, err)
	}
	if resp.PageInfo == nil {
		return nil, fmt.Errorf("%w: playlistItems response without pageInfo", shared.ErrParse)
	}

	items := make([]models.Item, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Snippet.ResourceID.VideoID == "" {
			return nil, fmt.Errorf("%w: playlist item %q without video id", shared.ErrParse, it.ID)
		}

		channel := it.Snippet.VideoOwnerChannelTitle
		if channel == "" {
			channel = it.Snippet.ChannelTitle
		}

		items = append(items, models.Item{
			ID:             it.Snippet.ResourceID.VideoID,
			PlaylistItemID: it.ID,
			Title:          it.Snippet.Title,
			ChannelTitle:   channel,
			Position:       it.Snippet.Position,
		})
	}

	return &models.Page{
		CollectionID:   playlistID,
		Items:          items,
		NextToken:      resp.NextPageToken,
		PrevToken:      resp.PrevPageToken,
		TotalResults:   resp.PageInfo.TotalResults,
		ResultsPerPage: resp.PageInfo.ResultsPerPage,
		FetchedAt:      time.Now(),
	}, nil
}

func (y *YouTubeService) mapError(playlistID string, err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s: %v", shared.ErrCollectionNotFound, playlistID, apiErr)
	case apiErr.StatusCode == http.StatusForbidden && youtubeAuthReasons[apiErr.Reason]:
		return fmt.Errorf("%w: %v", shared.ErrAuthExpired, apiErr)
	}
	return err
}
