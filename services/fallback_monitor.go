package services

import (
	"context"
	"time"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/utils"
)

// FallbackMonitor substitutes for push delivery while the channel is
// down: a coarse periodic poll re-derives the decision for every tracked
// device that has no active order.
type FallbackMonitor struct {
	Store    *store.Store
	Resolver *Resolver
	Registry *Registry

	// Connected reports the push channel state; the monitor idles while
	// the channel is up.
	Connected func() bool

	// OnDecision receives each freshly derived decision.
	OnDecision func(deviceID string, decision models.Decision)

	Interval time.Duration
	StopChan chan struct{}
}

func NewFallbackMonitor(st *store.Store, resolver *Resolver, registry *Registry, interval time.Duration) *FallbackMonitor {
	return &FallbackMonitor{
		Store:    st,
		Resolver: resolver,
		Registry: registry,
		Interval: interval,
		StopChan: make(chan struct{}),
	}
}

func (m *FallbackMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.pollOnce()
			case <-m.StopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Println("Fallback monitor started")
}

func (m *FallbackMonitor) Stop() {
	close(m.StopChan)
}

func (m *FallbackMonitor) pollOnce() {
	if m.Connected != nil && m.Connected() {
		return
	}

	for _, t := range m.Registry.All() {
		// Devices with a live order are never polled; their access is
		// already settled and extra load buys nothing.
		active, err := m.Store.ActiveOrder(t.DeviceID, models.ServiceDineIn)
		if err != nil {
			utils.ErrorLogger.Printf("Fallback poll state read failed for device %s: %v", t.DeviceID, err)
			continue
		}
		if active {
			continue
		}

		gen := m.Registry.Bump(t.DeviceID)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		decision, err := m.Resolver.ResolveAccess(ctx, t.DeviceID, t.Slug, t.ServiceType)
		cancel()
		if err != nil {
			utils.ErrorLogger.Printf("Fallback poll resolve failed for device %s: %v", t.DeviceID, err)
			continue
		}
		// A newer trigger superseded this poll; last write wins.
		if m.Registry.Generation(t.DeviceID) != gen {
			continue
		}
		if m.OnDecision != nil {
			m.OnDecision(t.DeviceID, decision)
		}
	}
}
