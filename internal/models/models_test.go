package models

import (
	"errors"
	"testing"
	"time"
)

func TestCredential(t *testing.T) {
	t.Run("Merge", func(t *testing.T) {
		t.Run("Keeps Refresh Token When Omitted", func(t *testing.T) {
			old := Credential{AccessToken: "old", RefreshToken: "rt-1", TokenType: "Bearer", Scope: "a b", ExpiresIn: 3600, IssuedAt: 100}
			refreshed := Credential{AccessToken: "new", TokenType: "Bearer", Scope: "a", ExpiresIn: 1800, IssuedAt: 200}

			merged := old.Merge(refreshed)

			if merged.RefreshToken != "rt-1" {
				t.Errorf("expected refresh token rt-1, got %q", merged.RefreshToken)
			}
			if merged.AccessToken != "new" || merged.Scope != "a" || merged.ExpiresIn != 1800 || merged.IssuedAt != 200 {
				t.Errorf("expected other fields to be replaced, got %+v", merged)
			}
			if old.AccessToken != "old" {
				t.Error("merge should not modify the receiver")
			}
		})

		t.Run("Replaces Refresh Token When Reissued", func(t *testing.T) {
			old := Credential{AccessToken: "old", RefreshToken: "rt-1"}
			merged := old.Merge(Credential{AccessToken: "new", RefreshToken: "rt-2"})

			if merged.RefreshToken != "rt-2" {
				t.Errorf("expected refresh token rt-2, got %q", merged.RefreshToken)
			}
		})

		t.Run("Replaces Token Type", func(t *testing.T) {
			old := Credential{AccessToken: "old", TokenType: "Bearer"}
			merged := old.Merge(Credential{AccessToken: "new"})

			if merged.TokenType != "" {
				t.Errorf("expected token type to be replaced, got %q", merged.TokenType)
			}
		})
	})

	t.Run("Authorization", func(t *testing.T) {
		tc := []struct {
			name string
			cred Credential
			want string
		}{
			{name: "default type", cred: Credential{AccessToken: "abc"}, want: "Bearer abc"},
			{name: "lowercase bearer", cred: Credential{AccessToken: "abc", TokenType: "bearer"}, want: "Bearer abc"},
			{name: "other type", cred: Credential{AccessToken: "abc", TokenType: "MAC"}, want: "MAC abc"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.cred.Authorization(); got != tt.want {
					t.Errorf("Authorization() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		cred := Credential{AccessToken: "abc", ExpiresIn: 3600, IssuedAt: 1000}

		if !cred.ExpiresAt().Equal(time.Unix(4600, 0)) {
			t.Errorf("unexpected expiry %v", cred.ExpiresAt())
		}
		if cred.Expired(time.Unix(4599, 0)) {
			t.Error("should not be expired before ExpiresAt")
		}
		if !cred.Expired(time.Unix(4600, 0)) {
			t.Error("should be expired at ExpiresAt")
		}
		if (Credential{AccessToken: "abc"}).Expired(time.Now()) {
			t.Error("credential without lifetime should never report expiry")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		if err := (Credential{}).Validate(); err == nil {
			t.Error("expected error for missing access token")
		}
		if err := (Credential{AccessToken: "a", ExpiresIn: -1}).Validate(); err == nil {
			t.Error("expected error for negative expires_in")
		}
		if err := (Credential{AccessToken: "a", Scope: "x y"}).Validate(); err != nil {
			t.Errorf("expected valid credential, got %v", err)
		}
	})

	t.Run("Scopes", func(t *testing.T) {
		scopes := Credential{Scope: "playlist-read-private  playlist-modify-public"}.Scopes()
		if len(scopes) != 2 || scopes[1] != "playlist-modify-public" {
			t.Errorf("unexpected scopes %v", scopes)
		}
	})
}

func TestTrackRef(t *testing.T) {
	t.Run("DeleteURI Prefers Linked URI", func(t *testing.T) {
		ref := TrackRef{URI: "spotify:track:relinked", LinkedURI: "spotify:track:original"}
		if ref.DeleteURI() != "spotify:track:original" {
			t.Errorf("expected linked uri, got %s", ref.DeleteURI())
		}
	})

	t.Run("DeleteURI Without Link", func(t *testing.T) {
		ref := TrackRef{URI: "spotify:track:a"}
		if ref.DeleteURI() != "spotify:track:a" {
			t.Errorf("expected primary uri, got %s", ref.DeleteURI())
		}
	})

	t.Run("Track Ref Carries Link", func(t *testing.T) {
		track := Track{URI: "spotify:track:a", LinkedURI: "spotify:track:b", Artists: []string{"X", "Y"}}
		if track.Ref().DeleteURI() != "spotify:track:b" {
			t.Errorf("expected linked uri in ref")
		}
		if track.Artist() != "X, Y" {
			t.Errorf("unexpected artist %q", track.Artist())
		}
	})
}

func TestStrategy(t *testing.T) {
	tc := []struct {
		in   string
		want Strategy
	}{
		{in: "append-start", want: AppendStart},
		{in: "prepend", want: AppendStart},
		{in: "append-end", want: AppendEnd},
		{in: " Append ", want: AppendEnd},
		{in: "overwrite", want: Overwrite},
		{in: "replace", want: Overwrite},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseStrategy() = %v, want %v", got, tt.want)
			}
			if parsed, _ := ParseStrategy(got.String()); parsed != got {
				t.Errorf("String() should round trip, got %v", parsed)
			}
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		if _, err := ParseStrategy("merge"); err == nil {
			t.Error("expected error for unknown strategy")
		}
	})

	t.Run("Ptr", func(t *testing.T) {
		p := Overwrite.Ptr()
		if p == nil || *p != Overwrite {
			t.Errorf("unexpected pointer value")
		}
	})
}

func TestSyncRun(t *testing.T) {
	started := time.Unix(100, 0)
	finished := time.Unix(105, 0)
	req := SyncRequest{SessionID: "sess", SourcePlaylistID: "src", DestinationPlaylistID: "dst"}

	t.Run("From Result", func(t *testing.T) {
		result := &SyncResult{State: StateDone, StrategyName: "overwrite", SourceTracks: 3, DeleteChunks: 1, AppendChunks: 1, SnapshotID: "snap-2"}
		run := NewSyncRun(req, result, nil, started, finished)

		if run.State != StateDone || run.Strategy != "overwrite" || run.SnapshotID != "snap-2" {
			t.Errorf("unexpected run %+v", run)
		}
		if run.Error != "" {
			t.Errorf("expected no error text, got %q", run.Error)
		}
		if err := run.Validate(); err != nil {
			t.Errorf("expected valid run, got %v", err)
		}
	})

	t.Run("Error Without Result", func(t *testing.T) {
		run := NewSyncRun(req, nil, errors.New("boom"), started, finished)

		if run.State != StateFailed {
			t.Errorf("expected failed state, got %s", run.State)
		}
		if run.Error != "boom" {
			t.Errorf("expected error text, got %q", run.Error)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		if err := (&SyncRun{DestinationPlaylistID: "d", State: StateDone}).Validate(); err == nil {
			t.Error("expected error for missing session id")
		}
		if err := (&SyncRun{SessionID: "s", State: StateDone}).Validate(); err == nil {
			t.Error("expected error for missing destination")
		}
		if err := (&SyncRun{SessionID: "s", DestinationPlaylistID: "d"}).Validate(); err == nil {
			t.Error("expected error for missing state")
		}
	})

	t.Run("Completed Chunks", func(t *testing.T) {
		if got := (SyncResult{DeleteChunks: 9, AppendChunks: 3}).CompletedChunks(); got != 12 {
			t.Errorf("expected 12, got %d", got)
		}
	})
}
