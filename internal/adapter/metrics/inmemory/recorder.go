package inmemory

import "sync"

type Snapshot struct {
	ActionTotal    uint64            `json:"action_total"`
	ActionSuccess  uint64            `json:"action_success"`
	ActionRejected uint64            `json:"action_rejected"`
	ActionFailure  uint64            `json:"action_failure"`
	ByOutcome      map[string]uint64 `json:"by_outcome"`
	ByRejectCode   map[string]uint64 `json:"by_reject_code"`

	SaveSuccess   uint64 `json:"save_success"`
	SaveFailure   uint64 `json:"save_failure"`
	SaveCoalesced uint64 `json:"save_coalesced"`
	LoadFound     uint64 `json:"load_found"`
	LoadMissing   uint64 `json:"load_missing"`
	LoadFailure   uint64 `json:"load_failure"`
}

// Recorder implements ports.ActionMetrics and ports.SaveMetrics.
type Recorder struct {
	mu        sync.Mutex
	success   uint64
	rejected  uint64
	failure   uint64
	byOutcome map[string]uint64
	byReject  map[string]uint64

	saveOK        uint64
	saveFailed    uint64
	saveCoalesced uint64
	loadFound     uint64
	loadMissing   uint64
	loadFailed    uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byOutcome: map[string]uint64{},
		byReject:  map[string]uint64{},
	}
}

func (r *Recorder) RecordSuccess(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
	r.byOutcome[kind]++
}

func (r *Recorder) RecordRejected(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
	r.byReject[code]++
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

// RecordSave counts one write; coalesced is how many scheduled records it replaced.
func (r *Recorder) RecordSave(ok bool, coalesced int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		r.saveFailed++
		return
	}
	r.saveOK++
	if coalesced > 0 {
		r.saveCoalesced += uint64(coalesced)
	}
}

func (r *Recorder) RecordLoad(found bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case !ok:
		r.loadFailed++
	case found:
		r.loadFound++
	default:
		r.loadMissing++
	}
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		ActionSuccess:  r.success,
		ActionRejected: r.rejected,
		ActionFailure:  r.failure,
		ActionTotal:    r.success + r.rejected + r.failure,
		ByOutcome:      make(map[string]uint64, len(r.byOutcome)),
		ByRejectCode:   make(map[string]uint64, len(r.byReject)),
		SaveSuccess:    r.saveOK,
		SaveFailure:    r.saveFailed,
		SaveCoalesced:  r.saveCoalesced,
		LoadFound:      r.loadFound,
		LoadMissing:    r.loadMissing,
		LoadFailure:    r.loadFailed,
	}
	for k, v := range r.byOutcome {
		out.ByOutcome[k] = v
	}
	for k, v := range r.byReject {
		out.ByRejectCode[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
