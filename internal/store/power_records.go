package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PowerWindow is one best-effort duration tracked in the records row
type PowerWindow struct {
	Key     string
	Seconds int
}

// PowerRecordWindows lists the tracked best-effort durations, shortest first
var PowerRecordWindows = []PowerWindow{
	{"5s", 5}, {"15s", 15}, {"30s", 30},
	{"1m", 60}, {"2m", 120}, {"3m", 180},
	{"5m", 300}, {"10m", 600}, {"15m", 900},
	{"20m", 1200}, {"30m", 1800}, {"45m", 2700}, {"60m", 3600},
}

// recordGroups are the meter-valued record families sharing the top-3 layout
var recordGroups = []string{"longest_ride", "max_elevation"}

// recordColumns returns the value/activity_id column pairs in schema order
func recordColumns() []string {
	cols := make([]string, 0, (len(PowerRecordWindows)*3+len(recordGroups)*3)*2)
	for _, w := range PowerRecordWindows {
		for rank := 1; rank <= 3; rank++ {
			cols = append(cols,
				fmt.Sprintf("power_%s_%d", w.Key, rank),
				fmt.Sprintf("power_%s_%d_activity_id", w.Key, rank),
			)
		}
	}
	for _, g := range recordGroups {
		for rank := 1; rank <= 3; rank++ {
			cols = append(cols,
				fmt.Sprintf("%s_%d", g, rank),
				fmt.Sprintf("%s_%d_activity_id", g, rank),
			)
		}
	}
	return cols
}

// powerRecordsDDL builds the CREATE TABLE statement for the wide records row
func powerRecordsDDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS tb_athlete_power_records (\n\t\tathlete_id INTEGER PRIMARY KEY")
	for _, col := range recordColumns() {
		if strings.HasSuffix(col, "_activity_id") {
			fmt.Fprintf(&b, ",\n\t\t%s INTEGER NOT NULL DEFAULT 0", col)
		} else {
			fmt.Fprintf(&b, ",\n\t\t%s REAL NOT NULL DEFAULT 0", col)
		}
	}
	b.WriteString(",\n\t\tupdated_at TEXT DEFAULT CURRENT_TIMESTAMP\n\t)")
	return b.String()
}

// GetPowerRecords retrieves the full records row for an athlete
func (db *DB) GetPowerRecords(athleteID int64) (*PowerRecords, error) {
	cols := recordColumns()
	row := db.QueryRow(
		"SELECT "+strings.Join(cols, ", ")+" FROM tb_athlete_power_records WHERE athlete_id = ?",
		athleteID,
	)

	slots := make([]RecordSlot, len(cols)/2)
	dest := make([]any, 0, len(cols))
	for i := range slots {
		dest = append(dest, &slots[i].Value, &slots[i].ActivityID)
	}

	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecords
	}
	if err != nil {
		return nil, err
	}

	r := &PowerRecords{
		AthleteID: athleteID,
		Powers:    make(map[string][3]RecordSlot, len(PowerRecordWindows)),
	}
	idx := 0
	for _, w := range PowerRecordWindows {
		var trio [3]RecordSlot
		for rank := 0; rank < 3; rank++ {
			trio[rank] = slots[idx]
			idx++
		}
		r.Powers[w.Key] = trio
	}
	for rank := 0; rank < 3; rank++ {
		r.LongestRide[rank] = slots[idx]
		idx++
	}
	for rank := 0; rank < 3; rank++ {
		r.MaxElevation[rank] = slots[idx]
		idx++
	}
	return r, nil
}

// SavePowerRecords writes the full records row for an athlete
func (db *DB) SavePowerRecords(r *PowerRecords) error {
	cols := recordColumns()

	args := make([]any, 0, len(cols)+1)
	args = append(args, r.AthleteID)
	for _, w := range PowerRecordWindows {
		trio := r.Powers[w.Key]
		for rank := 0; rank < 3; rank++ {
			args = append(args, trio[rank].Value, trio[rank].ActivityID)
		}
	}
	for rank := 0; rank < 3; rank++ {
		args = append(args, r.LongestRide[rank].Value, r.LongestRide[rank].ActivityID)
	}
	for rank := 0; rank < 3; rank++ {
		args = append(args, r.MaxElevation[rank].Value, r.MaxElevation[rank].ActivityID)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO tb_athlete_power_records (athlete_id, ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (?")
	b.WriteString(strings.Repeat(", ?", len(cols)))
	b.WriteString(") ON CONFLICT(athlete_id) DO UPDATE SET ")
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" = excluded.")
		b.WriteString(col)
	}
	b.WriteString(", updated_at = CURRENT_TIMESTAMP")

	_, err := db.Exec(b.String(), args...)
	return err
}
