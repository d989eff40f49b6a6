package broker

import (
	"fmt"
	"sort"

	"github.com/videocatalog/videocatalog/internal/models"
)

// identifierFields is the precedence order used to derive a coalescing key
// from an event's payload: the first field present wins.
var identifierFields = []string{"path", "item_id", "id", "doc_id", "series_id"}

// coalesce reduces events to the latest row per (kind, identifier) key when
// the batch exceeds threshold, bounding the cost of a subscriber's cold
// catch-up after a long absence. Batches at or under threshold pass
// through unchanged. The result is always ordered non-decreasing by seq.
func coalesce(events []models.Event, threshold int) []models.Event {
	if len(events) <= threshold {
		return events
	}

	latest := make(map[string]models.Event, len(events))
	for _, ev := range events {
		latest[ev.Kind+"|"+identifierOf(ev)] = ev
	}

	out := make([]models.Event, 0, len(latest))
	for _, ev := range latest {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func identifierOf(ev models.Event) string {
	for _, field := range identifierFields {
		v, ok := ev.Payload[field]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if s != "" {
				return s
			}
			continue
		}
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("seq:%d", ev.Seq)
}
