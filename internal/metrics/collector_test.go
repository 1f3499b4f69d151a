package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordTiming(OpDocUpsert, time.Millisecond)
	c.RecordListing(time.Millisecond, 10)

	snap := c.Snapshot()
	assert.Zero(t, snap.UptimeSeconds)
	assert.Nil(t, snap.DriveList)
}

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpDocUpsert, 10*time.Millisecond)
	c.RecordTiming(OpDocUpsert, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.DocUpsert)
	assert.Equal(t, int64(2), snap.DocUpsert.Count)
	assert.Equal(t, int64(40), snap.DocUpsert.TotalTimeMs)
	assert.Equal(t, int64(10), snap.DocUpsert.MinTimeMs)
	assert.Equal(t, int64(30), snap.DocUpsert.MaxTimeMs)
	assert.InDelta(t, 20, snap.DocUpsert.AvgTimeMs, 0.01)

	assert.Nil(t, snap.Extract, "untouched operations stay absent")
}

func TestRecordListingTracksEntries(t *testing.T) {
	c := NewCollector()
	c.RecordListing(5*time.Millisecond, 100)
	c.RecordListing(5*time.Millisecond, 40)

	snap := c.Snapshot()
	require.NotNil(t, snap.DriveList)
	require.NotNil(t, snap.DriveList.TotalEntries)
	assert.Equal(t, int64(140), *snap.DriveList.TotalEntries)
	assert.Equal(t, int64(40), *snap.DriveList.MinEntries)
	assert.Equal(t, int64(100), *snap.DriveList.MaxEntries)
	assert.InDelta(t, 70, *snap.DriveList.AvgEntries, 0.01)
}
