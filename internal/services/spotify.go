// Spotify Web API implementation of [Searcher]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/search
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/ytmirror/internal/models"
	"github.com/desertthunder/ytmirror/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL    = "https://accounts.spotify.com/api/token"
	spotifyBaseURL     = "https://api.spotify.com/v1"
	defaultSearchLimit = 5
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifySearchResponse is the /search envelope for type=track.
type SpotifySearchResponse struct {
	Tracks *struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
		Limit int            `json:"limit"`
	} `json:"tracks"`
}

// Candidate converts t into the model used for matching.
func (t SpotifyTrack) Candidate() models.Candidate {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return models.Candidate{
		ID:      t.ID,
		Name:    t.Name,
		Artists: artists,
		Album:   t.Album.Name,
		URI:     t.URI,
	}
}

// SpotifyService implements [Searcher] for the Spotify catalog.
type SpotifyService struct {
	api    *apiClient
	market string
	limit  int
}

// NewSpotifyService creates a search client.
//
// A configured access_token is sent as is. Otherwise client_id and client_secret are exchanged
// through the client credentials grant, which refreshes on expiry.
func NewSpotifyService(ctx context.Context, cfg shared.SpotifyConfig, timeout time.Duration) (*SpotifyService, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	var client *http.Client
	switch {
	case cfg.AccessToken != "":
		client = bearerClient(ctx, cfg.AccessToken)
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = spotifyTokenURL
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
		client = cc.Client(ctx)
	default:
		return nil, fmt.Errorf("%w: spotify access_token or client_id/client_secret", shared.ErrMissingCredentials)
	}

	return &SpotifyService{
		api:    newAPIClient(baseURL, client, timeout),
		market: cfg.Market,
		limit:  defaultSearchLimit,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Search calls GET /search?type=track and returns the tracks in Spotify's ranking order.
func (s *SpotifyService) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(s.limit))
	if s.market != "" {
		params.Set("market", s.market)
	}

	var resp SpotifySearchResponse
	if err := s.api.get(ctx, "/search", params, &resp); err != nil {
		return nil, err
	}
	if resp.Tracks == nil {
		return nil, fmt.Errorf("%w: search response without tracks", shared.ErrParse)
	}

	candidates := make([]models.Candidate, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		candidates = append(candidates, t.Candidate())
	}
	return candidates, nil
}
