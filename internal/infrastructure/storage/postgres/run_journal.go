package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"gaushala/internal/core/id"
	"gaushala/internal/domain/rollup"
)

const runJournalTable = "sys_rollup_runs"

// CompressionAlgo specifies the compression algorithm used for journal details.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the details size above which they are stored zstd-compressed.
const DefaultCompressThreshold = 8 * 1024

// runRow is the storage shape of rollup.RunEntry.
type runRow struct {
	ID                string          `db:"id"`
	RunID             string          `db:"run_id"`
	SiteID            string          `db:"site_id"`
	Kind              string          `db:"kind"`
	Status            string          `db:"status"`
	Trigger           string          `db:"trigger"`
	FirstMonth        *time.Time      `db:"first_month"`
	LastMonth         *time.Time      `db:"last_month"`
	MonthsProcessed   int             `db:"months_processed"`
	Error             *string         `db:"error"`
	Details           json.RawMessage `db:"details"`
	DetailsCompressed []byte          `db:"details_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	StartedAt         time.Time       `db:"started_at"`
	FinishedAt        time.Time       `db:"finished_at"`
}

// RunJournal stores rollup run entries in sys_rollup_runs.
type RunJournal struct {
	txManager         *TxManager
	builder           squirrel.StatementBuilderType
	columns           []string
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewRunJournal creates the journal. threshold <= 0 selects DefaultCompressThreshold.
func NewRunJournal(txManager *TxManager, threshold int) (*RunJournal, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}

	return &RunJournal{
		txManager:         txManager,
		builder:           squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		columns:           ExtractDBColumns[runRow](),
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Record inserts one journal entry.
func (j *RunJournal) Record(ctx context.Context, entry rollup.RunEntry) error {
	row, err := j.toRow(entry)
	if err != nil {
		return err
	}

	sql, args, err := j.builder.Insert(runJournalTable).
		Columns(j.columns...).
		Values(ValuesInOrder(row, j.columns)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := j.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert run entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (j *RunJournal) ListRecent(ctx context.Context, siteID string, limit int) ([]rollup.RunEntry, error) {
	sql, args, err := j.recentQuery(siteID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []runRow
	if err := pgxscan.Select(ctx, j.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select run entries: %w", err)
	}

	entries := make([]rollup.RunEntry, 0, len(rows))
	for _, r := range rows {
		e, err := j.fromRow(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (j *RunJournal) recentQuery(siteID string, limit int) squirrel.SelectBuilder {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := j.builder.Select(j.columns...).From(runJournalTable)
	if siteID != "" {
		q = q.Where(squirrel.Eq{"site_id": siteID})
	}
	return q.OrderBy("started_at DESC", "id DESC").Limit(uint64(limit))
}

func (j *RunJournal) toRow(e rollup.RunEntry) (runRow, error) {
	if e.ID == "" {
		e.ID = id.NewString()
	}

	row := runRow{
		ID:              e.ID,
		RunID:           e.RunID,
		SiteID:          e.SiteID,
		Kind:            string(e.Kind),
		Status:          string(e.Status),
		Trigger:         e.Trigger,
		FirstMonth:      parseMonthKey(e.FirstMonth),
		LastMonth:       parseMonthKey(e.LastMonth),
		MonthsProcessed: e.MonthsProcessed,
		StartedAt:       e.StartedAt,
		FinishedAt:      e.FinishedAt,
	}
	if e.Error != "" {
		row.Error = &e.Error
	}

	details, err := json.Marshal(e.Steps)
	if err != nil {
		return runRow{}, fmt.Errorf("marshal run details: %w", err)
	}
	row.Details, row.DetailsCompressed, row.CompressionAlgo = j.compress(details)
	return row, nil
}

func (j *RunJournal) fromRow(r runRow) (rollup.RunEntry, error) {
	e := rollup.RunEntry{
		ID:              r.ID,
		RunID:           r.RunID,
		SiteID:          r.SiteID,
		Kind:            rollup.Kind(r.Kind),
		Status:          rollup.RunStatus(r.Status),
		Trigger:         r.Trigger,
		FirstMonth:      formatMonthKey(r.FirstMonth),
		LastMonth:       formatMonthKey(r.LastMonth),
		MonthsProcessed: r.MonthsProcessed,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
	if r.Error != nil {
		e.Error = *r.Error
	}

	details, err := j.decompress(r)
	if err != nil {
		return rollup.RunEntry{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Steps); err != nil {
			return rollup.RunEntry{}, fmt.Errorf("unmarshal run details: %w", err)
		}
	}
	return e, nil
}

// compress keeps small details as plain JSON and zstd-compresses large ones.
func (j *RunJournal) compress(details []byte) (json.RawMessage, []byte, CompressionAlgo) {
	if len(details) <= j.compressThreshold {
		return details, nil, CompressionNone
	}
	return nil, j.encoder.EncodeAll(details, nil), CompressionZstd
}

func (j *RunJournal) decompress(r runRow) ([]byte, error) {
	if r.CompressionAlgo != CompressionZstd || len(r.DetailsCompressed) == 0 {
		return r.Details, nil
	}
	out, err := j.decoder.DecodeAll(r.DetailsCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress run details: %w", err)
	}
	return out, nil
}

func parseMonthKey(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func formatMonthKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

var _ rollup.Journal = (*RunJournal)(nil)
