package dictionary

import (
	"sync"
	"sync/atomic"
)

// Holder publishes the merged dictionary to concurrent readers. Writers build a
// new Dictionary and swap the reference; readers never see a partial update.
type Holder struct {
	mu     sync.Mutex // serialises writers
	local  *Dictionary
	remote *Dictionary
	merged atomic.Pointer[Dictionary]
}

// NewHolder starts with local entries and no remote additions.
func NewHolder(local *Dictionary) *Holder {
	h := &Holder{local: local}
	h.merged.Store(Merge(local, nil))
	return h
}

// Current returns the merged dictionary used for substitution.
func (h *Holder) Current() *Dictionary {
	return h.merged.Load()
}

// Local returns the user-curated entries.
func (h *Holder) Local() *Dictionary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.local
}

// Remote returns the last remote additions, possibly nil.
func (h *Holder) Remote() *Dictionary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.remote
}

// SetLocal replaces the local entries and re-merges.
func (h *Holder) SetLocal(local *Dictionary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.local = local
	h.merged.Store(Merge(h.local, h.remote))
}

// SetRemote replaces the remote additions and re-merges.
func (h *Holder) SetRemote(remote *Dictionary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remote = remote
	h.merged.Store(Merge(h.local, h.remote))
}

// Substitute applies the current merged dictionary.
func (h *Holder) Substitute(text string) string {
	return h.Current().Substitute(text)
}
