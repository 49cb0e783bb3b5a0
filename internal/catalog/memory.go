package catalog

import (
	"context"
	"sort"
)

// Memory is an in-process catalog used when the service runs without a
// database and by tests.
type Memory struct {
	windows []SlotWindow
}

func NewMemory(labels []string) *Memory {
	m := &Memory{}
	for i, label := range labels {
		m.windows = append(m.windows, SlotWindow{
			ID:       label,
			Label:    label,
			Position: i,
		})
	}
	return m
}

func (m *Memory) ListWindows(ctx context.Context) ([]SlotWindow, error) {
	out := make([]SlotWindow, len(m.windows))
	copy(out, m.windows)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}
