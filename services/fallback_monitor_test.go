package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/upstream"
)

func newTestMonitor(t *testing.T, api *fakeTableAPI) (*FallbackMonitor, *Registry) {
	st := setupTestStore(t)
	registry := NewRegistry()
	m := NewFallbackMonitor(st, NewResolver(st, api), registry, time.Minute)
	return m, registry
}

func TestFallbackPollSkipsWhileConnected(t *testing.T) {
	api := &fakeTableAPI{result: &upstream.LookupResult{
		Outcome: upstream.OutcomeOK,
		Table:   availableTable(),
	}}
	m, registry := newTestMonitor(t, api)
	registry.Track(Tracking{DeviceID: "dev-1", Slug: "slug-5", ServiceType: models.ServiceDineIn, TableID: 5})

	m.Connected = func() bool { return true }
	m.pollOnce()
	assert.Equal(t, 0, api.calls, "push channel up: no polling")

	m.Connected = func() bool { return false }
	m.pollOnce()
	assert.Equal(t, 1, api.calls)
}

func TestFallbackPollSkipsActiveOrders(t *testing.T) {
	api := &fakeTableAPI{result: &upstream.LookupResult{
		Outcome: upstream.OutcomeOK,
		Table:   availableTable(),
	}}
	m, registry := newTestMonitor(t, api)
	registry.Track(Tracking{DeviceID: "dev-1", Slug: "slug-5", ServiceType: models.ServiceDineIn, TableID: 5})

	assert.NoError(t, m.Store.AdoptOrder("dev-1", models.ServiceDineIn, "order-1", "in_progress"))

	m.Connected = func() bool { return false }
	m.pollOnce()
	assert.Equal(t, 0, api.calls, "active order: access already settled")
}

func TestFallbackPollDeliversDecisions(t *testing.T) {
	api := &fakeTableAPI{result: &upstream.LookupResult{
		Outcome: upstream.OutcomeOK,
		Table:   availableTable(),
	}}
	m, registry := newTestMonitor(t, api)
	registry.Track(Tracking{DeviceID: "dev-1", Slug: "slug-5", ServiceType: models.ServiceDineIn, TableID: 5})

	var gotDevice string
	var gotDecision models.Decision
	m.Connected = func() bool { return false }
	m.OnDecision = func(deviceID string, decision models.Decision) {
		gotDevice = deviceID
		gotDecision = decision
	}

	m.pollOnce()
	assert.Equal(t, "dev-1", gotDevice)
	assert.Equal(t, models.DecisionProceed, gotDecision.Kind)
}
