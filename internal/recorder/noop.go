package recorder

// NoopRecorder is used when no journal path is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordOperation(_ *Operation) error { return nil }
func (n *NoopRecorder) RecordSweep(_ *SweepRun) error      { return nil }
func (n *NoopRecorder) Close() error                       { return nil }
