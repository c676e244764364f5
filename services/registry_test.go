package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryTrackAndLookup(t *testing.T) {
	r := NewRegistry()

	r.Track(Tracking{DeviceID: "dev-1", Slug: "slug-5", ServiceType: "dine_in", TableID: 5})
	r.Track(Tracking{DeviceID: "dev-2", Slug: "slug-5", ServiceType: "dine_in", TableID: 5, WaitlistToken: "wl-2"})
	r.Track(Tracking{DeviceID: "dev-3", Slug: "slug-9", ServiceType: "dine_in", TableID: 9})

	assert.Len(t, r.ByTable(5), 2)
	assert.Len(t, r.ByTable(9), 1)
	assert.Len(t, r.All(), 3)

	tracked, ok := r.ByWaitlistToken("wl-2")
	assert.True(t, ok)
	assert.Equal(t, "dev-2", tracked.DeviceID)

	_, ok = r.ByWaitlistToken("")
	assert.False(t, ok, "empty token must never match")

	r.Untrack("dev-1")
	assert.Len(t, r.ByTable(5), 1)
}

func TestRegistryGenerationSurvivesRetrack(t *testing.T) {
	r := NewRegistry()
	r.Track(Tracking{DeviceID: "dev-1", TableID: 5})

	assert.Equal(t, uint64(1), r.Bump("dev-1"))
	assert.Equal(t, uint64(2), r.Bump("dev-1"))

	// Re-tracking with new entities keeps the counter, otherwise an
	// in-flight resolution could pass the staleness check it should fail.
	r.Track(Tracking{DeviceID: "dev-1", TableID: 7})
	assert.Equal(t, uint64(2), r.Generation("dev-1"))
	assert.Equal(t, uint64(3), r.Bump("dev-1"))
}

func TestRegistryUntrackedDeviceGeneration(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, uint64(0), r.Bump("ghost"))
	assert.Equal(t, uint64(0), r.Generation("ghost"))
}
