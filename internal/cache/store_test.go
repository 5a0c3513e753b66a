package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omicsview/insight/internal/frame"
	"github.com/omicsview/insight/internal/query"
)

func testEntry(component, sigHash string, seq int64) Entry {
	return Entry{
		ComponentID:    component,
		SignatureHash:  sigHash,
		Fingerprint:    "fp-" + sigHash,
		Dataset:        "comet",
		DatasetVersion: "v1",
		Rows: []frame.Row{
			{"id_idx": frame.Int(0), "score": frame.Float(0.5)},
			{"id_idx": frame.Int(1), "score": frame.Float(0.01)},
		},
		Seq: seq,
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	want := testEntry("psm_table", "sig-a", 1)
	require.NoError(t, s.Put(ctx, want))

	got, found, err := s.Get(ctx, "psm_table", "sig-a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want.Fingerprint, got.Fingerprint)
	assert.Equal(t, want.DatasetVersion, got.DatasetVersion)
	require.Len(t, got.Rows, 2)
	assert.True(t, frame.Equal(got.Rows[1]["score"], frame.Float(0.01)))

	_, found, err = s.Get(ctx, "psm_table", "sig-missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_PutIsUpsert(t *testing.T) {
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	e := testEntry("psm_table", "sig-a", 1)
	require.NoError(t, s.Put(ctx, e))

	e.Fingerprint = "fp-rewritten"
	e.DatasetVersion = "v2"
	e.Seq = 7
	require.NoError(t, s.Put(ctx, e))

	got, found, err := s.Get(ctx, "psm_table", "sig-a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "fp-rewritten", got.Fingerprint)
	assert.Equal(t, "v2", got.DatasetVersion)
	assert.Equal(t, int64(7), got.Seq)

	metas, err := s.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, metas, 1, "upsert must not create a second row")
}

func TestStore_PruneKeepsCurrentSignature(t *testing.T) {
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("psm_table", "sig-a", 1)))
	require.NoError(t, s.Put(ctx, testEntry("psm_table", "sig-b", 2)))
	require.NoError(t, s.Put(ctx, testEntry("psm_plot", "sig-a", 3)))

	n, err := s.Prune(ctx, "psm_table", "sig-b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, found, err := s.Get(ctx, "psm_table", "sig-a")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = s.Get(ctx, "psm_table", "sig-b")
	require.NoError(t, err)
	assert.True(t, found)

	// Other components untouched.
	_, found, err = s.Get(ctx, "psm_plot", "sig-a")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestStore_ListWithPredicates(t *testing.T) {
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testEntry("psm_plot", "sig-a", 2)))
	require.NoError(t, s.Put(ctx, testEntry("psm_table", "sig-b", 1)))
	require.NoError(t, s.Put(ctx, testEntry("spectrum_view", "sig-c", 3)))

	// Unfiltered: ordered by seq.
	metas, err := s.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, "psm_table", metas[0].ComponentID)
	assert.Equal(t, "psm_plot", metas[1].ComponentID)
	assert.Equal(t, "spectrum_view", metas[2].ComponentID)
	assert.Equal(t, int64(2), metas[0].RowCount)

	metas, err = s.List(ctx, []query.Predicate{
		query.Eq("component_id", frame.String("psm_plot")),
	})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "sig-a", metas[0].SignatureHash)

	metas, err = s.List(ctx, []query.Predicate{
		{Column: "seq", Op: query.OpGt, Value: frame.Int(1)},
	})
	require.NoError(t, err)
	assert.Len(t, metas, 2)

	_, err = s.List(ctx, []query.Predicate{
		query.Eq("rows_json", frame.String("x")),
	})
	assert.Error(t, err, "payload columns are not queryable")
}
