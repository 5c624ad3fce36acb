package dispatch

import "sync"

// sessionTable tracks allocated session ids. DAAP clients are expected to
// carry session-id on subsequent requests, but per the original
// implementation's own posture (it only ever reads the value back for
// status display) no handler rejects a request for an absent or unknown
// one — the LAN-trust model this protocol assumes doesn't call for it.
type sessionTable struct {
	mu    sync.Mutex
	next  int32
	alive map[int32]bool
}

func newSessionTable() *sessionTable {
	return &sessionTable{alive: make(map[int32]bool)}
}

// allocate returns a fresh session id.
func (t *sessionTable) allocate() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.alive[t.next] = true
	return t.next
}

// drop removes a session id, if present.
func (t *sessionTable) drop(id int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.alive, id)
}
