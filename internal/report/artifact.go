package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"standcore/internal/blob"
)

// ArtifactPrefix namespaces every report artifact in the blob store.
const ArtifactPrefix = "reports/"

// Summary is the document written as a daily report artifact.
type Summary struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Stats       Stats                  `json:"stats"`
	SalesByDate map[string]int         `json:"sales_by_date"`
	TopItems    []ItemCount            `json:"top_items"`
	Consumption map[string]int         `json:"ingredient_consumption"`
	ByDate      map[string]DateMetrics `json:"by_date,omitempty"`
}

// BuildSummary runs every aggregation and folds the results into one
// document.
func (e *Engine) BuildSummary(ctx context.Context, now time.Time) (Summary, error) {
	stats, err := e.GeneralStats(ctx)
	if err != nil {
		return Summary{}, err
	}
	byDate, err := e.SalesByDate(ctx)
	if err != nil {
		return Summary{}, err
	}
	top, err := e.TopMenuItems(ctx, 10)
	if err != nil {
		return Summary{}, err
	}
	consumption, err := e.IngredientConsumption(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		GeneratedAt: now.UTC(),
		Stats:       stats,
		SalesByDate: byDate,
		TopItems:    top,
		Consumption: consumption,
	}, nil
}

// WriteArtifacts persists the summary as a JSON document plus a CSV of the
// top sellers. Keys carry a timestamp, so rerunning a report never collides
// with the store's create-only Put.
func (e *Engine) WriteArtifacts(ctx context.Context, store blob.Store, summary Summary) ([]blob.Info, error) {
	stamp := summary.GeneratedAt.UTC().Format("20060102-150405")

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	jsonInfo, err := store.Put(ctx, ArtifactPrefix+"summary-"+stamp+".json", bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"kind": "summary"},
	})
	if err != nil {
		return nil, fmt.Errorf("put summary: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"menu_item", "quantity"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, item := range summary.TopItems {
		if err := w.Write([]string{item.Name, strconv.Itoa(item.Quantity)}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	csvInfo, err := store.Put(ctx, ArtifactPrefix+"top-items-"+stamp+".csv", &buf, blob.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"kind": "top_items"},
	})
	if err != nil {
		return nil, fmt.Errorf("put top items: %w", err)
	}
	return []blob.Info{jsonInfo, csvInfo}, nil
}

// PurgeArtifacts deletes every stored report artifact. Used by reset so a
// reseeded store starts from a clean reporting slate.
func PurgeArtifacts(ctx context.Context, store blob.Store) (int, error) {
	infos, err := store.List(ctx, ArtifactPrefix)
	if err != nil {
		return 0, fmt.Errorf("list artifacts: %w", err)
	}
	deleted := 0
	for _, info := range infos {
		ok, err := store.Delete(ctx, info.Key)
		if err != nil {
			return deleted, fmt.Errorf("delete %s: %w", info.Key, err)
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}
