package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/alanyoungcy/vendingbot/internal/domain"
	"github.com/alanyoungcy/vendingbot/internal/sim"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ledgerPartSize is the multipart chunk size for full-ledger exports.
const ledgerPartSize int64 = 8 * 1024 * 1024

// Archiver uploads end-of-day artifacts to object storage: the day report
// as a JSON document and, on demand, the whole event ledger as JSONL. It
// also loads the operator guidance document fed to the restock oracle.
type Archiver struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	store  domain.SnapshotStore
}

// NewArchiver wires an archiver over the given blob client and snapshot
// store.
func NewArchiver(c *Client, store domain.SnapshotStore) *Archiver {
	return &Archiver{
		writer: NewWriter(c),
		reader: NewReader(c),
		store:  store,
	}
}

// ArchiveDayReport uploads the report under reports/<date>.json.
func (a *Archiver) ArchiveDayReport(ctx context.Context, report *sim.DayReport) (string, error) {
	body, err := report.JSON()
	if err != nil {
		return "", fmt.Errorf("s3blob: encode day report: %w", err)
	}

	key := "reports/" + report.Date + ".json"
	if err := a.writer.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive day report %s: %w", report.Date, err)
	}
	return key, nil
}

// ExportLedger uploads every ledger event as JSONL under
// ledger/events.jsonl. The export can outgrow a single request, so it goes
// through the multipart uploader.
func (a *Archiver) ExportLedger(ctx context.Context) (string, int, error) {
	events, err := a.store.ReadEvents(ctx, "")
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: read ledger: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return "", 0, fmt.Errorf("s3blob: encode event %s: %w", ev.ID, err)
		}
	}

	const key = "ledger/events.jsonl"
	if err := a.writer.PutMultipart(ctx, key, &buf, ledgerPartSize); err != nil {
		return "", 0, fmt.Errorf("s3blob: export ledger: %w", err)
	}
	return key, len(events), nil
}

// LoadGuidance fetches the operator guidance document for the restock
// oracle. A missing document is not an error; it returns an empty string.
func (a *Archiver) LoadGuidance(ctx context.Context, key string) (string, error) {
	if key == "" {
		key = "guidance/restock.md"
	}

	exists, err := a.reader.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("s3blob: check guidance %s: %w", key, err)
	}
	if !exists {
		return "", nil
	}

	rc, err := a.reader.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("s3blob: load guidance %s: %w", key, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("s3blob: read guidance %s: %w", key, err)
	}
	return string(body), nil
}
