// v1
// shared.go
package internal

import (
	"fmt"
	"time"
)

// propagateShared fills each batch's shared map with the first valid value
// found anywhere in the batch for every shared metric. These sensors are
// mounted once per apiary, not once per hive, and the raw export duplicates
// or omits the field inconsistently per row, so the scan must cover the whole
// batch rather than the row at the target hive's position. "Valid" means the
// value survives the metric's domain rule: a fault sentinel on the first row
// must not mask a real reading on a later one.
func (p *Pipeline) propagateShared(batches []batch) []Warning {
	var warnings []Warning
	for i := range batches {
		b := &batches[i]
		b.shared = make(map[Metric]*float64, len(sharedMetrics))
		for _, m := range sharedMetrics {
			b.shared[m] = p.firstValidShared(b, m)
			if b.shared[m] == nil {
				warnings = append(warnings, Warning{
					Kind:   WarnNoSharedValueFound,
					Detail: fmt.Sprintf("tick %s: no valid %s in batch of %d rows", b.time.Format(time.RFC3339), m, len(b.rows)),
				})
			}
		}
	}
	return warnings
}

func (p *Pipeline) firstValidShared(b *batch, m Metric) *float64 {
	for _, row := range b.rows {
		v, ok := p.norm.Metric(row.raw, m)
		if !ok {
			continue
		}
		if s := sanitizeValue(m, v); s != nil {
			return s
		}
	}
	return nil
}
