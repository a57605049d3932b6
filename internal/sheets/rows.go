package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"spendwise/internal/core"
)

// Header is the first row of every mirrored tab.
var Header = []any{"ID", "User", "Name", "Amount", "Currency", "Frequency", "Start", "End", "Active", "Version"}

func RowFromRecord(r core.RecurringRecord) MirroredRow {
	row := MirroredRow{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Amount:    core.RoundCents(r.Amount),
		Currency:  r.Currency,
		Frequency: r.Frequency,
		Active:    r.Active,
		Version:   r.Version,
	}
	if r.StartDate != nil {
		row.StartDate = r.StartDate.String()
	}
	if r.EndDate != nil {
		row.EndDate = r.EndDate.String()
	}
	return row
}

// Values renders the row in Header column order.
func (r MirroredRow) Values() []any {
	return []any{
		r.ID, r.UserID, r.Name, r.Amount, r.Currency, string(r.Frequency),
		r.StartDate, r.EndDate, r.Active, r.Version,
	}
}

// ParseRow reads a row in Header column order. Cells may come back as
// numbers or as formatted strings.
func ParseRow(cells []any) (MirroredRow, error) {
	cols := make([]string, len(Header))
	for i := range cols {
		if i < len(cells) {
			cols[i] = strings.TrimSpace(fmt.Sprint(cells[i]))
		}
	}
	if cols[0] == "" {
		return MirroredRow{}, fmt.Errorf("row has no id")
	}

	amount, err := core.ParseAmount(cols[3])
	if err != nil {
		return MirroredRow{}, fmt.Errorf("row %s amount: %w", cols[0], err)
	}
	version, err := strconv.ParseInt(cols[9], 10, 64)
	if err != nil {
		return MirroredRow{}, fmt.Errorf("row %s version: %w", cols[0], err)
	}

	return MirroredRow{
		ID:        cols[0],
		UserID:    cols[1],
		Name:      cols[2],
		Amount:    amount,
		Currency:  cols[4],
		Frequency: core.Frequency(cols[5]),
		StartDate: cols[6],
		EndDate:   cols[7],
		Active:    strings.EqualFold(cols[8], "true"),
		Version:   version,
	}, nil
}
