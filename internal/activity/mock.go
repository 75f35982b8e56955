package activity

import "context"

// MockSink collects events in memory for tests.
type MockSink struct {
	Events []Event
	LogFn  func(ctx context.Context, ev Event) error
}

func (m *MockSink) Log(ctx context.Context, ev Event) error {
	m.Events = append(m.Events, ev)
	if m.LogFn != nil {
		return m.LogFn(ctx, ev)
	}
	return nil
}

// Actions returns the recorded actions in order.
func (m *MockSink) Actions() []string {
	out := make([]string, 0, len(m.Events))
	for _, ev := range m.Events {
		out = append(out, ev.Action)
	}
	return out
}
