package models

import "strings"

// Playlist represents playlist metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id"`
	Public      bool   `json:"public"`
	SnapshotID  string `json:"snapshot_id"`
	TrackCount  int    `json:"track_count"`
}

// Track represents a playlist item as shown in listings.
type Track struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	LinkedURI  string   `json:"linked_uri,omitempty"` // original uri when the market relinked the track
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
	ISRC       string   `json:"isrc,omitempty"`
	IsLocal    bool     `json:"is_local,omitempty"`
}

// Artist joins artist names for display.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Ref returns the mutation identity of t.
func (t Track) Ref() TrackRef {
	return TrackRef{URI: t.URI, LinkedURI: t.LinkedURI}
}

// TrackRef identifies a track for add and remove calls.
type TrackRef struct {
	URI       string `json:"uri"`
	Positions []int  `json:"positions,omitempty"`
	LinkedURI string `json:"linked_uri,omitempty"`
}

// DeleteURI is the identifier to send when removing the track. The provider relinks
// tracks per market, so the uri it returns may not be the one stored in the playlist;
// the linked uri is the stored one when present.
func (r TrackRef) DeleteURI() string {
	if r.LinkedURI != "" {
		return r.LinkedURI
	}
	return r.URI
}

// Page is one offset/limit page of a collection.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// PlaylistSnapshot is a complete read of a playlist.
type PlaylistSnapshot struct {
	PlaylistID string     `json:"playlist_id"`
	SnapshotID string     `json:"snapshot_id"`
	Items      []TrackRef `json:"items"`
	Total      int        `json:"total"`
}

// PlaylistExport is a playlist with all of its tracks, as written by the exporters.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}
