// Package services adapts the Spotify Web API and accounts service to the provider
// contracts used by the sync engine.
//
// # Provider Interface
//
// [Provider] combines [PlaylistReader] and [PlaylistMutator]. [SpotifyService] implements it
// over plain HTTP; the credential is passed on every call instead of being held by the
// client, so the caller decides when to refresh and retry.
//
// # Authentication
//
// [SpotifyAuth] implements [TokenIssuer] with [oauth2.Config]: the authorization code
// exchange and the refresh_token grant. Tokens are converted to [models.Credential].
//
// # Expiry Detection
//
// Spotify reports an expired access token with a 401 and a challenge of the form
//
//	Bearer realm="spotify", error="invalid_token", error_description="The access token expired"
//
// [ExpiryDetector] parses that challenge out of an [APIError] so callers depend only on a
// boolean capability.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which unwraps to a sentinel from the shared package:
//   - [shared.ErrNotAuthenticated] : 401
//   - [shared.ErrRateLimited] : 429, with [APIError.RetryAfter]
//   - [shared.ErrPlaylistNotFound] : 404
//   - [shared.ErrAPIRequest] : anything else
//
// # API Mappings
//
// Spotify JSON is converted to models.Playlist and models.Track. Track relinking is kept:
// when a market is set, linked_from.uri (the uri stored in the playlist) becomes
// [models.Track.LinkedURI].
package services
