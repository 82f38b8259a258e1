// Package services implements the HTTP clients behind [CollectionSource] and [Searcher].
//
// # YouTube
//
// [YouTubeService] pages through the YouTube Data API v3 playlistItems endpoint. Requests carry the
// configured API key as the key query parameter and, when an access token is configured, an
// [oauth2] bearer header.
//
// # Spotify
//
// [SpotifyService] calls the Spotify Web API search endpoint. A configured access token is used as
// is; otherwise the client credentials grant from [clientcredentials] fetches one.
//
// Token acquisition and refresh for user-scoped credentials are out of scope: an expired bearer
// surfaces as [shared.ErrAuthExpired].
//
// # Error Handling
//
// Both clients share [apiClient] and map responses to sentinel errors from the shared package:
//   - [shared.ErrAuthExpired] : 401, auth-related 403, or a failed token exchange
//   - [shared.ErrParse] : body is not the documented JSON shape
//   - [shared.ErrCollectionNotFound] : playlist id does not exist
//   - [shared.ErrAPIRequest] : any other non-2xx status or transport failure
//
// Every request is bound to the caller's context and to the configured request timeout.
package services
