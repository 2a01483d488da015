package judging

import (
	"context"
	"log/slog"
)

type BulkFailure struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// BulkReport summarizes an unordered, per-record import. Failed records do
// not abort the rest.
type BulkReport struct {
	Upserted int           `json:"upserted"`
	Failed   []BulkFailure `json:"failed,omitempty"`
}

func (r BulkReport) Partial() bool { return len(r.Failed) > 0 }

func bulkUpsert[T any](ctx context.Context, log *slog.Logger, kind string, items []T, save func(context.Context, T) (string, error)) BulkReport {
	var rep BulkReport
	for i, it := range items {
		id, err := save(ctx, it)
		if err != nil {
			rep.Failed = append(rep.Failed, BulkFailure{Index: i, ID: id, Error: err.Error()})
			continue
		}
		rep.Upserted++
	}
	if rep.Partial() {
		log.Warn("bulk import partial failure", "kind", kind, "upserted", rep.Upserted, "failed", len(rep.Failed))
	}
	return rep
}
