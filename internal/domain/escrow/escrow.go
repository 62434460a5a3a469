package escrow

// Entry is one escrowed reward waiting for admin confirmation. The same
// wallet may appear more than once, once per session.
type Entry struct {
	Wallet    string `json:"wallet"`
	Amount    uint64 `json:"amount"`
	Token     string `json:"token"`
	SessionID uint64 `json:"sessionId"`
}

// Queue holds pending escrow entries in insertion order. Removal swaps
// the last entry into the removed slot, so order is not preserved across
// removals. Not safe for concurrent use; callers serialize access.
type Queue struct {
	entries []Entry
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(e Entry) {
	q.entries = append(q.entries, e)
}

// FirstByWallet returns the first entry for wallet by current position,
// together with its index.
func (q *Queue) FirstByWallet(wallet string) (Entry, int, bool) {
	for i, e := range q.entries {
		if e.Wallet == wallet {
			return e, i, true
		}
	}
	return Entry{}, -1, false
}

// RemoveAt deletes the entry at index i by swapping in the last entry.
func (q *Queue) RemoveAt(i int) {
	last := len(q.entries) - 1
	if i < 0 || i > last {
		return
	}
	q.entries[i] = q.entries[last]
	q.entries = q.entries[:last]
}

// Contains reports whether an entry for the wallet and session is queued.
func (q *Queue) Contains(wallet string, sessionID uint64) bool {
	for _, e := range q.entries {
		if e.Wallet == wallet && e.SessionID == sessionID {
			return true
		}
	}
	return false
}

// TotalFor sums the queued amounts for a wallet across all sessions.
func (q *Queue) TotalFor(wallet string) uint64 {
	var total uint64
	for _, e := range q.entries {
		if e.Wallet == wallet {
			total += e.Amount
		}
	}
	return total
}

func (q *Queue) Len() int {
	return len(q.entries)
}

// Entries returns a copy of the queue contents.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Snapshot is the serializable state of a Queue.
type Snapshot struct {
	Entries []Entry `json:"entries"`
}

func (q *Queue) Export() Snapshot {
	return Snapshot{Entries: q.Entries()}
}

func (q *Queue) Restore(snap Snapshot) {
	q.entries = make([]Entry, len(snap.Entries))
	copy(q.entries, snap.Entries)
}
