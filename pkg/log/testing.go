package log

// DiscardOutput drops every entry.
type DiscardOutput struct{}

// Write discards the formatted entry.
func (DiscardOutput) Write(_ *Entry, _ []byte) error { return nil }

// Close is a no-op.
func (DiscardOutput) Close() error { return nil }

// NewTestLogger returns a logger suitable for tests: it accepts every level
// and discards all output.
func NewTestLogger() Logger {
	return NewLogger(WithLevel(DebugLevel), WithFormatter(&TextFormatter{}), WithOutput(DiscardOutput{}))
}
