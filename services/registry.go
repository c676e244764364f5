package services

import "sync"

// Tracking is one device's currently watched entities: the table it
// scanned and, when queued, its waitlist token.
type Tracking struct {
	DeviceID      string
	Slug          string
	ServiceType   string
	TableID       uint
	WaitlistToken string

	generation uint64
}

// Registry maps devices to the entities their decisions depend on. Both
// the push consumer and the fallback poller read it; the generation
// counter makes superseded resolutions detectable.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Tracking
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Tracking)}
}

// Track starts (or updates) tracking for a device.
func (r *Registry) Track(t Tracking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.devices[t.DeviceID]; ok {
		t.generation = existing.generation
	}
	r.devices[t.DeviceID] = &t
}

// Untrack stops tracking a device, e.g. on flow teardown.
func (r *Registry) Untrack(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, deviceID)
}

// ByTable -> all devices watching a table.
func (r *Registry) ByTable(tableID uint) []Tracking {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Tracking
	for _, t := range r.devices {
		if t.TableID == tableID {
			out = append(out, *t)
		}
	}
	return out
}

// ByWaitlistToken -> the device holding a waitlist token, if tracked.
func (r *Registry) ByWaitlistToken(token string) (Tracking, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.devices {
		if t.WaitlistToken != "" && t.WaitlistToken == token {
			return *t, true
		}
	}
	return Tracking{}, false
}

// All -> a copy of every tracked device.
func (r *Registry) All() []Tracking {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Tracking, 0, len(r.devices))
	for _, t := range r.devices {
		out = append(out, *t)
	}
	return out
}

// Bump marks a new decision evaluation for a device and returns its
// generation. A resolution holding an older generation has been
// superseded and must drop its result.
func (r *Registry) Bump(deviceID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.devices[deviceID]
	if !ok {
		return 0
	}
	t.generation++
	return t.generation
}

// Generation -> the current generation for a device.
func (r *Registry) Generation(deviceID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.devices[deviceID]; ok {
		return t.generation
	}
	return 0
}
