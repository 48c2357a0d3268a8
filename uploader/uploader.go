package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sheetsync/internal/retry"
	"sheetsync/inventory"
	"sheetsync/smartsheet"
	"sheetsync/transform"
)

// ClearChunkSize is the number of row ids sent in one delete request.
const ClearChunkSize = 400

var (
	ErrCancelled         = errors.New("upload cancelled")
	ErrNoMatchingColumns = errors.New("no table column matches a sheet column")
)

// FatalError reports a remote operation that failed permanently, either
// because the failure was not retryable or because retries ran out.
type FatalError struct {
	Op       string
	Batch    int
	Attempts int
	Err      error
}

func (e *FatalError) Error() string {
	if e.Batch > 0 {
		return fmt.Sprintf("%s failed on batch %d after %d attempt(s): %v", e.Op, e.Batch, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

type Config struct {
	BatchSize      int
	MaxRetries     int
	RetryDelay     time.Duration
	RateLimitDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:      20,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		RateLimitDelay: 500 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 || c.RateLimitDelay < 0 {
		return errors.New("delays must not be negative")
	}
	return nil
}

// ProgressFunc receives the number of rows done so far and the total.
type ProgressFunc func(uploaded, total int)

// Uploader replaces the contents of a remote sheet in rate-limited batches.
type Uploader struct {
	client smartsheet.Client
	cfg    Config
	logger *slog.Logger
	sleep  retry.SleepFunc
}

func New(client smartsheet.Client, cfg Config, logger *slog.Logger) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("sheet client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{client: client, cfg: cfg, logger: logger, sleep: retry.Sleep}, nil
}

// ClearAll deletes every row of the sheet in chunks of ClearChunkSize and
// returns the number of rows deleted. Rows deleted before a failure or a
// cancellation stay deleted. Cancellation is honoured between chunks; a
// delete request already sent runs to completion.
func (u *Uploader) ClearAll(ctx context.Context, sheetID string, progress ProgressFunc) (int, error) {
	policy := u.policy("delete rows", retry.Fixed(u.cfg.RetryDelay))

	sheet, err := u.fetchSheet(ctx, sheetID, policy)
	if err != nil {
		return 0, err
	}

	ids := sheet.RowIDs()
	if len(ids) == 0 {
		u.logger.Info("sheet already empty", "sheet_id", sheetID)
		return 0, nil
	}

	detached := context.WithoutCancel(ctx)
	cleared := 0
	chunk := 0
	for start := 0; start < len(ids); start += ClearChunkSize {
		chunk++
		if err := ctx.Err(); err != nil {
			return cleared, cancelled(cleared, err)
		}

		end := min(start+ClearChunkSize, len(ids))
		rowIDs := ids[start:end]
		err := policy.Do(ctx, func(context.Context) error {
			return u.client.DeleteRows(detached, sheetID, rowIDs)
		})
		if err != nil {
			return cleared, failure("delete rows", chunk, err, cleared)
		}

		cleared += len(rowIDs)
		u.logger.Info("deleted rows", "sheet_id", sheetID, "chunk", chunk, "rows", len(rowIDs), "cleared", cleared, "total", len(ids))
		if progress != nil {
			progress(cleared, len(ids))
		}

		if end < len(ids) {
			if err := u.sleep(ctx, u.cfg.RateLimitDelay); err != nil {
				return cleared, cancelled(cleared, err)
			}
		}
	}
	return cleared, nil
}

// UploadAll appends table rows to the bottom of the sheet in batches and
// returns the number of rows sent. Cells without a value or without a
// matching sheet column are omitted; rows left without cells are skipped.
// Cancellation is honoured between batches and retry attempts; a batch
// already sent runs to completion and is counted.
func (u *Uploader) UploadAll(ctx context.Context, sheetID string, table *inventory.Table, progress ProgressFunc) (int, error) {
	if table.Len() == 0 {
		return 0, nil
	}
	policy := u.policy("append rows", retry.Linear(u.cfg.RetryDelay))

	sheet, err := u.fetchSheet(ctx, sheetID, policy)
	if err != nil {
		return 0, err
	}
	columns, err := u.resolveColumns(sheet, table.Fields)
	if err != nil {
		return 0, err
	}

	detached := context.WithoutCancel(ctx)
	total := table.Len()
	batches := (total + u.cfg.BatchSize - 1) / u.cfg.BatchSize
	uploaded := 0
	for batch := 0; batch < batches; batch++ {
		if err := ctx.Err(); err != nil {
			return uploaded, cancelled(uploaded, err)
		}

		start := batch * u.cfg.BatchSize
		end := min(start+u.cfg.BatchSize, total)
		rows := BuildRows(table.Fields, table.Rows[start:end], columns)

		if len(rows) > 0 {
			err := policy.Do(ctx, func(context.Context) error {
				return u.client.AppendRows(detached, sheetID, rows)
			})
			if err != nil {
				return uploaded, failure("append rows", batch+1, err, uploaded)
			}
			uploaded += len(rows)
		}
		u.logger.Info("uploaded batch", "sheet_id", sheetID, "batch", batch+1, "batches", batches, "rows", len(rows), "uploaded", uploaded, "total", total)
		if progress != nil {
			progress(uploaded, total)
		}

		if batch < batches-1 {
			if err := u.sleep(ctx, u.cfg.RateLimitDelay); err != nil {
				return uploaded, cancelled(uploaded, err)
			}
		}
	}
	return uploaded, nil
}

// BuildRows converts cleaned rows into API rows using the field to column id
// map.
func BuildRows(fields []inventory.Field, rows []inventory.Row, columns map[string]int64) []smartsheet.Row {
	out := make([]smartsheet.Row, 0, len(rows))
	for _, row := range rows {
		cells := make([]smartsheet.Cell, 0, len(fields))
		for _, field := range fields {
			columnID, ok := columns[field.Name]
			if !ok {
				continue
			}
			value := row[field.Name]
			if value == "" || inventory.IsNullLike(value) {
				continue
			}
			cells = append(cells, smartsheet.Cell{ColumnID: columnID, Value: cellValue(field, value)})
		}
		if len(cells) > 0 {
			out = append(out, smartsheet.Row{ToBottom: true, Cells: cells})
		}
	}
	return out
}

func cellValue(field inventory.Field, value string) any {
	if field.IsNumeric() {
		if number, ok := transform.ParseNumber(value); ok {
			return json.Number(number.String())
		}
	}
	return value
}

func (u *Uploader) resolveColumns(sheet *smartsheet.Sheet, fields []inventory.Field) (map[string]int64, error) {
	columns := make(map[string]int64, len(fields))
	for _, field := range fields {
		id, ok := sheet.ColumnID(field.Title)
		if !ok && field.Title != field.Name {
			id, ok = sheet.ColumnID(field.Name)
		}
		if !ok {
			u.logger.Warn("sheet has no column for field", "field", field.Name, "title", field.Title)
			continue
		}
		columns[field.Name] = id
	}
	if len(columns) == 0 {
		return nil, &FatalError{Op: "resolve columns", Attempts: 1, Err: ErrNoMatchingColumns}
	}
	return columns, nil
}

func (u *Uploader) fetchSheet(ctx context.Context, sheetID string, policy retry.Policy) (*smartsheet.Sheet, error) {
	var sheet *smartsheet.Sheet
	err := policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := u.client.GetSheet(ctx, sheetID)
		if err != nil {
			return err
		}
		sheet = fetched
		return nil
	})
	if err != nil {
		return nil, failure("fetch sheet", 0, err, 0)
	}
	return sheet, nil
}

func (u *Uploader) policy(op string, backoff retry.Backoff) retry.Policy {
	return retry.Policy{
		MaxAttempts: u.cfg.MaxRetries,
		Backoff:     backoff,
		Retryable:   smartsheet.IsTransient,
		Sleep:       u.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			u.logger.Warn("transient remote failure, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		},
	}
}

func cancelled(done int, cause error) error {
	return fmt.Errorf("%w after %d row(s): %w", ErrCancelled, done, cause)
}

func failure(op string, batch int, err error, done int) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		var exhausted *retry.ExhaustedError
		if !errors.As(err, &exhausted) {
			return cancelled(done, err)
		}
	}

	fatal := &FatalError{Op: op, Batch: batch, Attempts: 1, Err: err}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		fatal.Attempts = exhausted.Attempts
		fatal.Err = exhausted.Err
	}
	return fatal
}
