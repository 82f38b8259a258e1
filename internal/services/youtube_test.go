package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/ytmirror/internal/shared"
)

func playlistItemsPayload(next, prev string, total int, titles ...string) map[string]any {
	items := make([]map[string]any, len(titles))
	for i, title := range titles {
		items[i] = map[string]any{
			"id": "PLI" + title,
			"snippet": map[string]any{
				"title":                  title,
				"videoOwnerChannelTitle": "Channel",
				"position":               i,
				"resourceId":             map[string]any{"kind": "youtube#video", "videoId": "vid-" + title},
			},
		}
	}

	payload := map[string]any{
		"kind":     "youtube#playlistItemListResponse",
		"pageInfo": map[string]any{"totalResults": total, "resultsPerPage": len(titles)},
		"items":    items,
	}
	if next != "" {
		payload["nextPageToken"] = next
	}
	if prev != "" {
		payload["prevPageToken"] = prev
	}
	return payload
}

func newTestYouTube(t *testing.T, handler http.HandlerFunc, cfg shared.YouTubeConfig) *YouTubeService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	svc, err := NewYouTubeService(context.Background(), cfg, time.Second)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestYouTubeService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewYouTubeService", func(t *testing.T) {
		t.Run("requires a credential", func(t *testing.T) {
			_, err := NewYouTubeService(ctx, shared.YouTubeConfig{}, time.Second)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("defaults base URL", func(t *testing.T) {
			svc, err := NewYouTubeService(ctx, shared.YouTubeConfig{APIKey: "key"}, 0)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.api.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL %s, got %s", defaultYTBaseURL, svc.api.baseURL)
			}
			if svc.api.httpClient.Timeout != defaultRequestTimeout {
				t.Errorf("expected default timeout, got %v", svc.api.httpClient.Timeout)
			}
			if svc.Name() != "YouTube" {
				t.Errorf("expected name YouTube, got %s", svc.Name())
			}
		})
	})

	t.Run("FetchPage", func(t *testing.T) {
		t.Run("first page", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/playlistItems" {
					t.Errorf("expected path /playlistItems, got %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("playlistId") != "PL1" || q.Get("part") != "snippet" || q.Get("maxResults") != "2" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				if q.Has("pageToken") {
					t.Error("first page should not send a page token")
				}
				if q.Get("key") != "key" {
					t.Errorf("expected api key, got %q", q.Get("key"))
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(playlistItemsPayload("tok2", "", 5, "a", "b"))
			}, shared.YouTubeConfig{APIKey: "key"})

			page, err := svc.FetchPage(ctx, "PL1", "", 2)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if page.NextToken != "tok2" || page.PrevToken != "" {
				t.Errorf("unexpected tokens next=%q prev=%q", page.NextToken, page.PrevToken)
			}
			if page.TotalResults != 5 || page.ResultsPerPage != 2 {
				t.Errorf("unexpected page info %d/%d", page.TotalResults, page.ResultsPerPage)
			}
			if len(page.Items) != 2 || page.Items[0].ID != "vid-a" || page.Items[0].PlaylistItemID != "PLIa" {
				t.Errorf("unexpected items %+v", page.Items)
			}
			if page.Items[1].ChannelTitle != "Channel" {
				t.Errorf("expected channel title, got %q", page.Items[1].ChannelTitle)
			}
		})

		t.Run("sends page token and bearer", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("pageToken"); got != "tok2" {
					t.Errorf("expected pageToken tok2, got %q", got)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer access" {
					t.Errorf("expected bearer header, got %q", got)
				}
				json.NewEncoder(w).Encode(playlistItemsPayload("", "tok1", 3, "c"))
			}, shared.YouTubeConfig{AccessToken: "access"})

			page, err := svc.FetchPage(ctx, "PL1", "tok2", 2)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if page.HasNext() || page.PrevToken != "tok1" {
				t.Errorf("unexpected tokens next=%q prev=%q", page.NextToken, page.PrevToken)
			}
		})

		t.Run("clamps page size", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("maxResults"); got != "50" {
					t.Errorf("expected maxResults 50, got %s", got)
				}
				json.NewEncoder(w).Encode(playlistItemsPayload("", "", 0))
			}, shared.YouTubeConfig{APIKey: "key"})

			if _, err := svc.FetchPage(ctx, "PL1", "", 500); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	})

	t.Run("errors", func(t *testing.T) {
		tt := []struct {
			name    string
			status  int
			body    string
			wantErr error
		}{
			{name: "malformed JSON", status: http.StatusOK, body: `{"items": [`, wantErr: shared.ErrParse},
			{name: "missing pageInfo", status: http.StatusOK, body: `{"items": []}`, wantErr: shared.ErrParse},
			{
				name:    "item without video id",
				status:  http.StatusOK,
				body:    `{"pageInfo": {"totalResults": 1}, "items": [{"id": "x", "snippet": {"title": "t"}}]}`,
				wantErr: shared.ErrParse,
			},
			{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, wantErr: shared.ErrAuthExpired},
			{
				name:    "forbidden credential",
				status:  http.StatusForbidden,
				body:    `{"error": {"message": "denied", "errors": [{"reason": "forbidden"}]}}`,
				wantErr: shared.ErrAuthExpired,
			},
			{
				name:    "quota exceeded",
				status:  http.StatusForbidden,
				body:    `{"error": {"message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`,
				wantErr: shared.ErrAPIRequest,
			},
			{
				name:    "playlist not found",
				status:  http.StatusNotFound,
				body:    `{"error": {"message": "gone", "errors": [{"reason": "playlistNotFound"}]}}`,
				wantErr: shared.ErrCollectionNotFound,
			},
			{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantErr: shared.ErrAPIRequest},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tc.status)
					w.Write([]byte(tc.body))
				}, shared.YouTubeConfig{APIKey: "key"})

				_, err := svc.FetchPage(ctx, "PL1", "", 50)
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
			})
		}

		t.Run("missing playlist id", func(t *testing.T) {
			svc, _ := NewYouTubeService(ctx, shared.YouTubeConfig{APIKey: "key"}, time.Second)
			if _, err := svc.FetchPage(ctx, "", "", 50); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("canceled context", func(t *testing.T) {
			svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(playlistItemsPayload("", "", 0))
			}, shared.YouTubeConfig{APIKey: "key"})

			canceled, cancel := context.WithCancel(ctx)
			cancel()
			if _, err := svc.FetchPage(canceled, "PL1", "", 50); !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})
	})
}
