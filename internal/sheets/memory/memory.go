package memory

import (
	"context"
	"sort"
	"sync"

	"spendwise/internal/core"
	"spendwise/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

// Mirror is an in-process stand-in for the spreadsheet.
type Mirror struct {
	mu   sync.Mutex
	rows map[core.RecordKind]map[string]sheets.MirroredRow
}

func New() *Mirror {
	return &Mirror{rows: make(map[core.RecordKind]map[string]sheets.MirroredRow)}
}

func (m *Mirror) UpsertRecord(_ context.Context, r core.RecurringRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab, ok := m.rows[r.Kind]
	if !ok {
		tab = make(map[string]sheets.MirroredRow)
		m.rows[r.Kind] = tab
	}
	if existing, ok := tab[r.ID]; ok && existing.Version > r.Version {
		return nil
	}
	tab[r.ID] = sheets.RowFromRecord(r)
	return nil
}

func (m *Mirror) DeleteRecord(_ context.Context, kind core.RecordKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[kind], id)
	return nil
}

func (m *Mirror) ListMirrored(_ context.Context, kind core.RecordKind) ([]sheets.MirroredRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]sheets.MirroredRow, 0, len(m.rows[kind]))
	for _, row := range m.rows[kind] {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
