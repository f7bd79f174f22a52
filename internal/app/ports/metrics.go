package ports

type ActionMetrics interface {
	RecordSuccess(kind string)
	RecordRejected(code string)
	RecordFailure()
}

type SaveMetrics interface {
	RecordSave(ok bool, coalesced int)
	RecordLoad(found bool, ok bool)
}
