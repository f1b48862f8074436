package registry

import "sync"

// Channel is one open live-update connection. Deliver must not block: it
// reports false when the payload could not be handed to the connection
// (buffer full, connection closing), and the caller treats that as a drop.
type Channel interface {
	Deliver(payload []byte) bool
}

// Registry maps a user id to the set of that user's open live channels.
// A user may hold several channels at once (multiple devices or tabs), so
// the value is a set, never a single slot.
//
// The registry is shared between every connection handler and the
// dispatcher; all methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[Channel]struct{}
}

func New() *Registry {
	return &Registry{channels: make(map[string]map[Channel]struct{})}
}

// Register adds ch to userID's channel set, creating the set if absent.
func (r *Registry) Register(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.channels[userID]
	if !ok {
		set = make(map[Channel]struct{})
		r.channels[userID] = set
	}
	set[ch] = struct{}{}
}

// Remove deletes ch from userID's set. Disconnect handlers can race or fire
// twice, so removing an absent channel or user is a no-op. The user entry is
// deleted once its set is empty.
func (r *Registry) Remove(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.channels[userID]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.channels, userID)
	}
}

// ChannelsFor returns a snapshot of userID's current channels. The caller
// iterates the snapshot without holding any lock, so a concurrent Remove
// never blocks behind a slow network write. Unknown users yield nil.
func (r *Registry) ChannelsFor(userID string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.channels[userID]
	if !ok {
		return nil
	}
	out := make([]Channel, 0, len(set))
	for ch := range set {
		out = append(out, ch)
	}
	return out
}

// Len reports the number of open channels across all users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, set := range r.channels {
		n += len(set)
	}
	return n
}
