package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// Output formats for terminal listings
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputCSV   = "csv"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteTracks writes tracks to w as a table, CSV or JSON.
func WriteTracks(w io.Writer, tracks []models.Track, output string) error {
	switch output {
	case OutputJSON:
		return writeJSON(w, tracks)
	case OutputCSV:
		return writeTrackCSV(csv.NewWriter(w), tracks)
	case OutputTable, "":
		tw := newTable(w)
		fmt.Fprintln(tw, styles.Title("#")+"\t"+styles.Title("TITLE")+"\t"+styles.Title("ARTIST")+"\t"+styles.Title("DURATION")+"\t"+styles.Title("URI"))
		for i, track := range tracks {
			uri := track.URI
			if track.LinkedURI != "" {
				uri += " " + styles.Help("(linked "+track.LinkedURI+")")
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, track.Name, track.Artist(), shared.FormatDuration(track.DurationMS), uri)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("%w: unknown output format %q", shared.ErrInvalidArgument, output)
	}
}

// WritePlaylists writes playlists to w as a table, CSV or JSON.
func WritePlaylists(w io.Writer, playlists []models.Playlist, output string) error {
	switch output {
	case OutputJSON:
		return writeJSON(w, playlists)
	case OutputCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"ID", "Name", "Owner", "Tracks", "Visibility"}); err != nil {
			return err
		}
		for _, p := range playlists {
			if err := cw.Write([]string{p.ID, p.Name, p.OwnerID, strconv.Itoa(p.TrackCount), shared.VisibilityString(p.Public)}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case OutputTable, "":
		tw := newTable(w)
		fmt.Fprintln(tw, styles.Title("ID")+"\t"+styles.Title("NAME")+"\t"+styles.Title("TRACKS")+"\t"+styles.Title("VISIBILITY"))
		for _, p := range playlists {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.TrackCount, shared.VisibilityString(p.Public))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("%w: unknown output format %q", shared.ErrInvalidArgument, output)
	}
}

// WriteSyncResult prints a summary of a finished (or failed) sync.
func WriteSyncResult(w io.Writer, result *models.SyncResult, runErr error) {
	if result == nil {
		fmt.Fprintln(w, styles.Err("sync failed: ")+errString(runErr))
		return
	}

	switch result.State {
	case models.StateDone:
		fmt.Fprintln(w, styles.OK("sync complete"))
	case models.StateConflict:
		fmt.Fprintln(w, styles.Warn("destination is not empty; choose a strategy with --strategy (append-start, append-end, overwrite)"))
	default:
		fmt.Fprintln(w, styles.Err("sync "+string(result.State)))
	}

	tw := newTable(w)
	if result.StrategyName != "" {
		fmt.Fprintf(tw, "strategy\t%s\n", result.StrategyName)
	}
	// a conflict stops before the source is read
	if result.State != models.StateConflict || result.SourceTracks > 0 {
		fmt.Fprintf(tw, "source tracks\t%d\n", result.SourceTracks)
	}
	fmt.Fprintf(tw, "destination tracks before\t%d\n", result.DestinationTotal)
	if result.TotalDeleteChunks > 0 {
		fmt.Fprintf(tw, "delete chunks\t%d/%d\n", result.DeleteChunks, result.TotalDeleteChunks)
	}
	fmt.Fprintf(tw, "append chunks\t%d/%d\n", result.AppendChunks, result.TotalAppendChunks)
	if result.SnapshotID != "" {
		fmt.Fprintf(tw, "snapshot\t%s\n", result.SnapshotID)
	}
	tw.Flush()

	if runErr != nil && result.State != models.StateConflict {
		fmt.Fprintln(w, styles.Err("error: ")+runErr.Error())
	}
}

// WriteRuns lists sync history rows, newest first.
func WriteRuns(w io.Writer, runs []*models.SyncRun, output string) error {
	if output == OutputJSON {
		return writeJSON(w, runs)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, styles.Title("#")+"\t"+styles.Title("STARTED")+"\t"+styles.Title("SOURCE")+"\t"+styles.Title("DESTINATION")+"\t"+styles.Title("STRATEGY")+"\t"+styles.Title("STATE")+"\t"+styles.Title("CHUNKS"))
	for _, run := range runs {
		source := run.SourcePlaylistID
		if source == "" {
			source = "(uris)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			run.Sequence,
			run.StartedAt.Local().Format(time.DateTime),
			source,
			run.DestinationPlaylistID,
			dash(run.Strategy),
			stateString(run.State),
			run.DeleteChunks+run.AppendChunks,
		)
	}
	return tw.Flush()
}

// WriteUser prints the authenticated account and, when cred is known, its token lifetime
// and granted scopes as of now.
func WriteUser(w io.Writer, user *models.User, sessionID string, cred *models.Credential, now time.Time) {
	fmt.Fprintf(w, "%s %s\n", styles.OK("authenticated as"), user.Name())
	fmt.Fprintf(w, "  session: %s\n", sessionID)
	if cred == nil {
		return
	}

	if cred.ExpiresIn > 0 {
		expires := cred.ExpiresAt().Local().Format(time.DateTime)
		if cred.Expired(now) {
			expires += " " + styles.Warn("(expired, refreshed on next call)")
		}
		fmt.Fprintf(w, "  token expires: %s\n", expires)
	}
	if scopes := cred.Scopes(); len(scopes) > 0 {
		fmt.Fprintf(w, "  scopes: %s\n", strings.Join(scopes, ", "))
	}
}

func stateString(s models.SyncState) string {
	switch s {
	case models.StateDone:
		return styles.OK(string(s))
	case models.StateFailed:
		return styles.Err(string(s))
	default:
		return styles.Warn(string(s))
	}
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func writeJSON(w io.Writer, v any) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
