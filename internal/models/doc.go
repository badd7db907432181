// Package models defines the domain types shared by the sync engine, the Spotify adapter and storage.
//
// The package contains three categories of types:
//
// 1. Session data
//   - [Credential] : OAuth2 credential record held per session
//   - [User] : The provider account behind a session
//
// 2. Playlist data
//   - [Playlist] : Basic playlist metadata
//   - [Track] : Track metadata used for listings
//   - [TrackRef] : The minimal identity of a track used by mutation calls
//   - [Page] : One offset/limit page of a provider collection
//   - [PlaylistSnapshot] : A full read of a playlist's mutation identities
//   - [PlaylistExport] : A playlist with its tracks, for file exports
//
// 3. Sync data
//   - [Strategy] : Conflict resolution strategy chosen by the caller
//   - [SyncRequest] : Ephemeral description of one sync
//   - [SyncResult] : Outcome of one sync, including partial progress
//   - [SyncRun] : Persisted history row for a sync
package models
