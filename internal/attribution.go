// v2
// attribution.go
package internal

import (
	"fmt"
	"sort"
	"time"
)

// attributedRow is a raw row after timestamp resolution and hive numbering.
type attributedRow struct {
	hiveNumber int
	raw        RawReading
	rowTime    time.Time
	hasOwnTime bool
}

// batch is the set of rows sharing one resolved timestamp (one export tick).
type batch struct {
	time time.Time
	rows []attributedRow
	// shared holds the propagated per-apiary values, keyed by shared metric.
	shared map[Metric]*float64
}

// attribute groups rows into per-timestamp batches and assigns each row a
// stable hive number. Rows with no resolvable timestamp (own field or source
// time) are dropped with a warning. If any row in the dataset carries an
// explicit device id, id mode is used for the whole dataset (hiveNumber =
// id + 1); otherwise hive numbers are 1-based row positions within a batch.
//
// The ordinal rule is a known limitation inherited from the export format:
// identity is positional, so a tick with reordered or missing rows shifts
// attribution. Consumers depend on the exact mapping, so it is preserved
// rather than second-guessed here.
//
// expected caps attribution when > 0: rows numbering beyond it are ignored
// with a warning rather than invented into new hives. The returned count is
// the device count (expected when configured, else the max observed number).
func (p *Pipeline) attribute(rows []RawReading) ([]batch, int, []Warning) {
	var warnings []Warning

	idMode := false
	for _, r := range rows {
		if _, ok := p.norm.HiveID(r); ok {
			idMode = true
			break
		}
	}

	byTick := map[int64]*batch{}
	var order []int64
	for i, r := range rows {
		rowTime, hasOwn := p.norm.Timestamp(r)
		if !hasOwn {
			rowTime = r.SourceTime
		}
		if rowTime.IsZero() {
			warnings = append(warnings, Warning{
				Kind:   WarnMissingTimestamp,
				Detail: fmt.Sprintf("row %d dropped: no timestamp field and no source time", i),
			})
			continue
		}
		key := rowTime.UnixMilli()
		b, seen := byTick[key]
		if !seen {
			b = &batch{time: rowTime.UTC()}
			byTick[key] = b
			order = append(order, key)
		}
		hive := len(b.rows) + 1 // 1-based position within the batch
		if idMode {
			if id, ok := p.norm.HiveID(r); ok {
				hive = id + 1
			}
		}
		b.rows = append(b.rows, attributedRow{hiveNumber: hive, raw: r, rowTime: rowTime.UTC(), hasOwnTime: hasOwn})
	}

	count := 0
	for _, key := range order {
		for _, row := range byTick[key].rows {
			if row.hiveNumber > count {
				count = row.hiveNumber
			}
		}
	}
	if p.expected > 0 {
		count = p.expected
		for _, key := range order {
			b := byTick[key]
			kept := b.rows[:0]
			for _, row := range b.rows {
				if row.hiveNumber > count {
					warnings = append(warnings, Warning{
						Kind:   WarnAttributionAmbiguous,
						Detail: fmt.Sprintf("tick %s: row for hive %d ignored, only %d hives configured", b.time.Format(time.RFC3339), row.hiveNumber, count),
					})
					continue
				}
				kept = append(kept, row)
			}
			b.rows = kept
		}
	}

	batches := make([]batch, 0, len(order))
	for _, key := range order {
		if len(byTick[key].rows) == 0 {
			continue
		}
		batches = append(batches, *byTick[key])
	}
	sort.SliceStable(batches, func(i, j int) bool { return batches[i].time.Before(batches[j].time) })
	return batches, count, warnings
}
