package records

import (
	"testing"

	"github.com/poiesic/tenderqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	r := core.Record{ID: "1", Name: "n", Region: "r", Locality: "l", Category: "c", StartDate: "s", EndDate: "e", Link: "k"}
	assert.Equal(t, "1 | n | r | l | c | s | e | k", Flatten(r))
	assert.Equal(t, " |  |  |  |  |  |  | ", Flatten(core.Record{}))
}

func TestSnapshot_DistinctIndex(t *testing.T) {
	snap, err := Load(sampleRows())
	require.NoError(t, err)

	assert.Equal(t, []string{"guntur", "hyderabad", "vijayawada"}, snap.Distinct(core.ColumnLocality))
	assert.Equal(t, []string{"andhra pradesh", "telangana"}, snap.Distinct(core.ColumnRegion))
	assert.Equal(t, []string{"civil", "it"}, snap.Distinct(core.ColumnCategory))
	assert.Nil(t, snap.Distinct(core.ColumnName), "name is not filterable")

	assert.Equal(t, []int{0, 1}, snap.Positions(core.ColumnRegion, "andhra pradesh"))
	assert.True(t, snap.Has(core.ColumnCategory, "it"))
	assert.False(t, snap.Has(core.ColumnCategory, "mining"))
}

func TestSnapshot_DistinctIndexSkipsBlankValues(t *testing.T) {
	snap, err := FromRecords([]core.Record{
		{ID: "a", Locality: "guntur"},
		{ID: "b", Locality: ""},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"guntur"}, snap.Distinct(core.ColumnLocality))
	assert.Empty(t, snap.Distinct(core.ColumnRegion))
}

func TestSnapshot_Flattened(t *testing.T) {
	snap, err := Load(sampleRows())
	require.NoError(t, err)

	all := snap.FlattenedAll()
	require.Len(t, all, 3)
	for i := range all {
		assert.Equal(t, Flatten(snap.Record(i)), snap.Flattened(i))
	}
	assert.Contains(t, snap.Flattened(2), "hyderabad")
}

func TestSnapshot_Fingerprint(t *testing.T) {
	a, err := Load(sampleRows())
	require.NoError(t, err)
	b, err := Load(append([][]string{header}, sampleRows()...))
	require.NoError(t, err)
	c, err := Load(sampleRows()[:2])
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestSnapshot_RecordsReturnsCopy(t *testing.T) {
	snap, err := Load(sampleRows())
	require.NoError(t, err)

	recs := snap.Records()
	recs[0].Name = "changed"
	assert.Equal(t, "road works", snap.Record(0).Name)
}

func TestEmpty(t *testing.T) {
	snap := Empty()
	assert.True(t, snap.IsEmpty())
	assert.Equal(t, 0, snap.Len())

	var nilSnap *Snapshot
	assert.True(t, nilSnap.IsEmpty())
}
