package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/stretchr/testify/require"
)

func TestChunk(t *testing.T) {
	tc := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{name: "empty", n: 0, size: 10, sizes: nil},
		{name: "exact multiple", n: 200, size: 100, sizes: []int{100, 100}},
		{name: "short tail", n: 250, size: 100, sizes: []int{100, 100, 50}},
		{name: "single item chunks", n: 3, size: 1, sizes: []int{1, 1, 1}},
		{name: "size larger than input", n: 5, size: 100, sizes: []int{5}},
		{name: "zero size", n: 5, size: 0, sizes: nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			items := makeURIs("x", tt.n)
			chunks := Chunk(items, tt.size)

			require.Len(t, chunks, len(tt.sizes))
			var joined []string
			for i, chunk := range chunks {
				require.Len(t, chunk, tt.sizes[i])
				joined = append(joined, chunk...)
			}
			if tt.n > 0 && tt.size > 0 {
				require.Equal(t, items, joined)
			}
		})
	}

	t.Run("chunks cannot grow into their neighbours", func(t *testing.T) {
		items := []int{1, 2, 3, 4}
		chunks := Chunk(items, 2)
		_ = append(chunks[0], 99)
		require.Equal(t, 3, items[2])
	})

	t.Run("ChunkCount", func(t *testing.T) {
		require.Equal(t, 0, ChunkCount(0, 100))
		require.Equal(t, 1, ChunkCount(1, 100))
		require.Equal(t, 3, ChunkCount(250, 100))
		require.Equal(t, 9, ChunkCount(260, 30))
		require.Equal(t, 0, ChunkCount(5, 0))
	})
}

func TestBatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("Chunk Size Bound", func(t *testing.T) {
		for _, n := range []int{1, 7, 99, 100, 101, 250} {
			for _, c := range []int{1, 3, 50, 100} {
				t.Run(fmt.Sprintf("n=%d c=%d", n, c), func(t *testing.T) {
					m := newRecordingMutator()
					b := NewBatcher(m, FixedDelay(0), nil)

					res, err := b.AppendChunked(ctx, "dst", makeURIs("s", n), 0, c)
					require.NoError(t, err)
					require.Len(t, m.appends, ChunkCount(n, c))
					require.Equal(t, ChunkCount(n, c), res.Completed)
					for _, call := range m.appends {
						require.LessOrEqual(t, len(call.uris), c)
					}
				})
			}
		}
	})

	t.Run("Chunk Size Clamped To Ceiling", func(t *testing.T) {
		m := newRecordingMutator()
		b := NewBatcher(m, FixedDelay(0), nil)

		_, err := b.AppendChunked(ctx, "dst", makeURIs("s", 250), 0, 500)
		require.NoError(t, err)
		require.Len(t, m.appends, 3)
		require.Len(t, m.appends[0].uris, MaxAppendChunk)
	})

	t.Run("Append Positions", func(t *testing.T) {
		m := newRecordingMutator()
		b := NewBatcher(m, FixedDelay(0), nil)

		res, err := b.AppendChunked(ctx, "dst", makeURIs("s", 250), 0, 100)
		require.NoError(t, err)

		var positions []int
		for _, call := range m.appends {
			positions = append(positions, call.position)
		}
		require.Equal(t, []int{0, 100, 200}, positions)
		require.Equal(t, []string{"snap-1", "snap-2", "snap-3"}, res.Snapshots)
		require.Equal(t, "snap-3", res.SnapshotID())
	})

	t.Run("Append Offset By Start", func(t *testing.T) {
		m := newRecordingMutator()
		b := NewBatcher(m, FixedDelay(0), nil)

		_, err := b.AppendChunked(ctx, "dst", makeURIs("s", 5), 7, 2)
		require.NoError(t, err)
		require.Equal(t, 7, m.appends[0].position)
		require.Equal(t, 9, m.appends[1].position)
		require.Equal(t, 11, m.appends[2].position)
	})

	t.Run("Delete Chains Snapshots", func(t *testing.T) {
		m := newRecordingMutator()
		b := NewBatcher(m, FixedDelay(0), nil)

		refs := make([]models.TrackRef, 260)
		for i, uri := range makeURIs("d", 260) {
			refs[i] = models.TrackRef{URI: uri}
		}

		res, err := b.DeleteChunked(ctx, "dst", refs, 30)
		require.NoError(t, err)
		require.Len(t, m.removes, 9)
		require.Equal(t, 9, res.Completed)

		require.Empty(t, m.removes[0].snapshot)
		for k := 1; k < len(m.removes); k++ {
			require.Equal(t, fmt.Sprintf("snap-%d", k), m.removes[k].snapshot, "chunk %d", k)
		}
		require.Len(t, m.removes[8].refs, 20)
	})

	t.Run("Empty Delete Is A No-op", func(t *testing.T) {
		m := newRecordingMutator()
		b := NewBatcher(m, FixedDelay(0), nil)

		res, err := b.DeleteChunked(ctx, "dst", nil, 100)
		require.NoError(t, err)
		require.Zero(t, res.Total)
		require.Empty(t, res.SnapshotID())
		require.Zero(t, m.calls)
	})

	t.Run("Invalid Input", func(t *testing.T) {
		b := NewBatcher(newRecordingMutator(), FixedDelay(0), nil)

		tc := []struct {
			name string
			run  func() error
		}{
			{name: "empty uris", run: func() error { _, err := b.AppendChunked(ctx, "dst", nil, 0, 100); return err }},
			{name: "empty playlist", run: func() error { _, err := b.AppendChunked(ctx, "", []string{"a"}, 0, 100); return err }},
			{name: "negative start", run: func() error { _, err := b.AppendChunked(ctx, "dst", []string{"a"}, -1, 100); return err }},
			{name: "zero chunk", run: func() error { _, err := b.AppendChunked(ctx, "dst", []string{"a"}, 0, 0); return err }},
			{name: "zero delete chunk", run: func() error {
				_, err := b.DeleteChunked(ctx, "dst", []models.TrackRef{{URI: "a"}}, 0)
				return err
			}},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				require.ErrorIs(t, tt.run(), shared.ErrBadRequest)
			})
		}
	})

	t.Run("Failure Stops The Batch", func(t *testing.T) {
		m := newRecordingMutator()
		m.failAt = 1
		b := NewBatcher(m, FixedDelay(0), nil)

		res, err := b.AppendChunked(ctx, "dst", makeURIs("s", 250), 0, 100)
		require.ErrorIs(t, err, shared.ErrChunkFailed)
		require.ErrorIs(t, err, errMutation)

		var chunkErr *ChunkError
		require.True(t, errors.As(err, &chunkErr))
		require.Equal(t, OpAppend, chunkErr.Op)
		require.Equal(t, 1, chunkErr.Index)
		require.Equal(t, 1, chunkErr.Completed)
		require.Equal(t, 3, chunkErr.Total)
		require.Equal(t, "snap-1", chunkErr.SnapshotID)

		require.Equal(t, 1, res.Completed)
		require.Len(t, m.appends, 2)
	})

	t.Run("Pacer Runs After Every Chunk", func(t *testing.T) {
		m := newRecordingMutator()
		p := &countingPacer{}
		b := NewBatcher(m, p, nil)

		var progress []int
		b.OnChunk = func(op string, completed, total int) {
			require.Equal(t, OpAppend, op)
			require.Equal(t, 3, total)
			progress = append(progress, completed)
		}

		_, err := b.AppendChunked(ctx, "dst", makeURIs("s", 250), 0, 100)
		require.NoError(t, err)
		require.Equal(t, 3, p.waits)
		require.Equal(t, []int{1, 2, 3}, progress)
	})

	t.Run("Pacer Error Before Next Chunk", func(t *testing.T) {
		m := newRecordingMutator()
		p := &countingPacer{failAt: 1, err: context.Canceled}
		b := NewBatcher(m, p, nil)

		res, err := b.AppendChunked(ctx, "dst", makeURIs("s", 250), 0, 100)
		require.ErrorIs(t, err, context.Canceled)

		var chunkErr *ChunkError
		require.True(t, errors.As(err, &chunkErr))
		require.Equal(t, 1, chunkErr.Index)
		require.Equal(t, 1, res.Completed)
		require.Len(t, m.appends, 1)
	})

	t.Run("Pacer Error After Last Chunk Is Ignored", func(t *testing.T) {
		m := newRecordingMutator()
		p := &countingPacer{failAt: 1, err: context.Canceled}
		b := NewBatcher(m, p, nil)

		res, err := b.AppendChunked(ctx, "dst", makeURIs("s", 10), 0, 100)
		require.NoError(t, err)
		require.Equal(t, 1, res.Completed)
	})

	t.Run("Cancelled Context Issues Nothing", func(t *testing.T) {
		m := newRecordingMutator()
		b := NewBatcher(m, FixedDelay(0), nil)

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res, err := b.AppendChunked(cctx, "dst", makeURIs("s", 10), 0, 100)
		require.ErrorIs(t, err, context.Canceled)
		require.Zero(t, res.Completed)
		require.Zero(t, m.calls)
	})
}
