package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"sheetsync/inventory"
	"sheetsync/smartsheet"
)

type fakeClient struct {
	sheet      *smartsheet.Sheet
	getErrs    []error
	appendErrs []error
	deleteErrs []error

	getCalls    int
	appendCalls [][]smartsheet.Row
	deleteCalls [][]int64

	// onWrite runs inside every append or delete request. The request then
	// fails if its own context was cancelled, as an aborted HTTP call would.
	onWrite func()
}

func (f *fakeClient) GetSheet(_ context.Context, _ string) (*smartsheet.Sheet, error) {
	f.getCalls++
	if len(f.getErrs) > 0 {
		err := f.getErrs[0]
		f.getErrs = f.getErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.sheet, nil
}

func (f *fakeClient) DeleteRows(ctx context.Context, _ string, rowIDs []int64) error {
	f.deleteCalls = append(f.deleteCalls, append([]int64(nil), rowIDs...))
	if err := f.write(ctx); err != nil {
		return err
	}
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		return err
	}
	return nil
}

func (f *fakeClient) AppendRows(ctx context.Context, _ string, rows []smartsheet.Row) error {
	f.appendCalls = append(f.appendCalls, rows)
	if err := f.write(ctx); err != nil {
		return err
	}
	if len(f.appendErrs) > 0 {
		err := f.appendErrs[0]
		f.appendErrs = f.appendErrs[1:]
		return err
	}
	return nil
}

func (f *fakeClient) write(ctx context.Context) error {
	if f.onWrite == nil {
		return nil
	}
	f.onWrite()
	return ctx.Err()
}

func inventorySheet(rowCount int) *smartsheet.Sheet {
	sheet := &smartsheet.Sheet{ID: 42, Name: "Inventory", TotalRowCount: rowCount}
	for i, field := range inventory.Schema() {
		sheet.Columns = append(sheet.Columns, smartsheet.Column{ID: int64(100 + i), Title: field.Title, Index: i})
	}
	for i := range rowCount {
		sheet.Rows = append(sheet.Rows, smartsheet.SheetRow{ID: int64(1000 + i), RowNumber: i + 1})
	}
	return sheet
}

func inventoryTable(rows int) *inventory.Table {
	table := &inventory.Table{Fields: inventory.Schema()}
	for i := range rows {
		table.Rows = append(table.Rows, inventory.Row{
			inventory.FieldProductCode: fmt.Sprintf("P%03d", i),
			inventory.FieldProduct:     "Widget",
			inventory.FieldBranch:      "Main",
			inventory.FieldSOH:         "10",
			inventory.FieldOpenSales:   "2.5",
			inventory.FieldAvailable:   "7.5",
		})
	}
	return table
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *sleepRecorder) count(d time.Duration) int {
	n := 0
	for _, delay := range s.delays {
		if delay == d {
			n++
		}
	}
	return n
}

func newTestUploader(t *testing.T, client *fakeClient, cfg Config) (*Uploader, *sleepRecorder) {
	t.Helper()
	u, err := New(client, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new uploader: %v", err)
	}
	recorder := &sleepRecorder{}
	u.sleep = recorder.sleep
	return u, recorder
}

func testConfig(batchSize int) Config {
	return Config{
		BatchSize:      batchSize,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		RateLimitDelay: 500 * time.Millisecond,
	}
}

func TestUploadAll_SplitsIntoBatchesAndPausesBetweenThem(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(0)}
	u, sleeps := newTestUploader(t, client, testConfig(50))

	var progress [][2]int
	uploaded, err := u.UploadAll(context.Background(), "42", inventoryTable(130), func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded != 130 {
		t.Fatalf("expected 130 rows uploaded, got %d", uploaded)
	}

	sizes := make([]int, 0, len(client.appendCalls))
	for _, call := range client.appendCalls {
		sizes = append(sizes, len(call))
	}
	if fmt.Sprint(sizes) != "[50 50 30]" {
		t.Fatalf("unexpected batch sizes: %v", sizes)
	}
	if got := sleeps.count(500 * time.Millisecond); got != 2 {
		t.Fatalf("expected 2 rate-limit pauses, got %d (%v)", got, sleeps.delays)
	}
	if fmt.Sprint(progress) != "[[50 130] [100 130] [130 130]]" {
		t.Fatalf("unexpected progress events: %v", progress)
	}
}

func TestUploadAll_CancelAfterFirstBatch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(0)}
	u, _ := newTestUploader(t, client, testConfig(50))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uploaded, err := u.UploadAll(ctx, "42", inventoryTable(130), func(done, total int) {
		if done == 50 {
			cancel()
		}
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(client.appendCalls) != 1 || uploaded != 50 {
		t.Fatalf("expected exactly one batch before cancellation, got %d calls and %d rows", len(client.appendCalls), uploaded)
	}
}

func TestUploadAll_CancelDuringRequestCountsSentBatch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(0)}
	u, _ := newTestUploader(t, client, testConfig(50))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onWrite = cancel

	uploaded, err := u.UploadAll(ctx, "42", inventoryTable(130), nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(client.appendCalls) != 1 || uploaded != 50 {
		t.Fatalf("expected the in-flight batch to complete and count, got %d calls and %d rows", len(client.appendCalls), uploaded)
	}
}

func TestUploadAll_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		sheet:      inventorySheet(0),
		appendErrs: []error{&smartsheet.APIError{StatusCode: http.StatusServiceUnavailable}, nil},
	}
	u, sleeps := newTestUploader(t, client, testConfig(50))

	uploaded, err := u.UploadAll(context.Background(), "42", inventoryTable(10), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded != 10 || len(client.appendCalls) != 2 {
		t.Fatalf("expected 1 retry and 10 rows, got %d calls and %d rows", len(client.appendCalls), uploaded)
	}
	if sleeps.count(2*time.Second) != 1 {
		t.Fatalf("expected one retry pause of 2s, got %v", sleeps.delays)
	}
}

func TestUploadAll_BackoffGrowsPerAttemptAndExhausts(t *testing.T) {
	t.Parallel()

	transient := &smartsheet.APIError{StatusCode: http.StatusTooManyRequests, ErrorCode: 4003}
	client := &fakeClient{
		sheet:      inventorySheet(0),
		appendErrs: []error{transient, transient, transient},
	}
	u, sleeps := newTestUploader(t, client, testConfig(50))

	uploaded, err := u.UploadAll(context.Background(), "42", inventoryTable(60), nil)
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	if fatal.Attempts != 3 || fatal.Batch != 1 {
		t.Fatalf("unexpected fatal error: %+v", fatal)
	}
	if uploaded != 0 || len(client.appendCalls) != 3 {
		t.Fatalf("expected 3 attempts and no rows, got %d calls and %d rows", len(client.appendCalls), uploaded)
	}
	if fmt.Sprint(sleeps.delays) != "[2s 4s]" {
		t.Fatalf("expected linear backoff pauses, got %v", sleeps.delays)
	}
}

func TestUploadAll_FatalErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		sheet:      inventorySheet(0),
		appendErrs: []error{&smartsheet.APIError{StatusCode: http.StatusForbidden, ErrorCode: 1004}},
	}
	u, _ := newTestUploader(t, client, testConfig(50))

	_, err := u.UploadAll(context.Background(), "42", inventoryTable(5), nil)
	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Attempts != 1 {
		t.Fatalf("expected single-attempt FatalError, got %v", err)
	}
	if len(client.appendCalls) != 1 {
		t.Fatalf("expected no retries, got %d calls", len(client.appendCalls))
	}
}

func TestUploadAll_OmitsEmptyCellsAndRows(t *testing.T) {
	t.Parallel()

	sheet := inventorySheet(0)
	sheet.Columns = sheet.Columns[:len(sheet.Columns)-1]
	client := &fakeClient{sheet: sheet}
	u, _ := newTestUploader(t, client, testConfig(50))

	table := &inventory.Table{
		Fields: inventory.Schema(),
		Rows: []inventory.Row{
			{inventory.FieldProductCode: "A1", inventory.FieldSOH: "1244", inventory.FieldBranch: "nan", inventory.FieldAvailable: "5"},
			{inventory.FieldProductCode: "", inventory.FieldSOH: ""},
		},
	}

	uploaded, err := u.UploadAll(context.Background(), "42", table, nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploaded != 1 {
		t.Fatalf("expected empty row to be dropped, got %d rows", uploaded)
	}

	cells := client.appendCalls[0][0].Cells
	if len(cells) != 2 {
		t.Fatalf("expected ProductCode and SOH cells only, got %+v", cells)
	}
	if cells[0].Value != "A1" {
		t.Fatalf("expected text value, got %#v", cells[0].Value)
	}
	if cells[1].Value != json.Number("1244") {
		t.Fatalf("expected numeric value, got %#v", cells[1].Value)
	}
}

func TestUploadAll_FailsWhenNoColumnsMatch(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: &smartsheet.Sheet{Columns: []smartsheet.Column{{ID: 1, Title: "Unrelated"}}}}
	u, _ := newTestUploader(t, client, testConfig(50))

	_, err := u.UploadAll(context.Background(), "42", inventoryTable(3), nil)
	if !errors.Is(err, ErrNoMatchingColumns) {
		t.Fatalf("expected ErrNoMatchingColumns, got %v", err)
	}
}

func TestClearAll_DeletesInChunks(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(850)}
	u, sleeps := newTestUploader(t, client, testConfig(50))

	cleared, err := u.ClearAll(context.Background(), "42", nil)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != 850 {
		t.Fatalf("expected 850 rows cleared, got %d", cleared)
	}

	sizes := make([]int, 0, len(client.deleteCalls))
	for _, call := range client.deleteCalls {
		sizes = append(sizes, len(call))
	}
	if fmt.Sprint(sizes) != "[400 400 50]" {
		t.Fatalf("unexpected delete chunk sizes: %v", sizes)
	}
	if client.deleteCalls[2][0] != 1800 {
		t.Fatalf("expected third chunk to start at row id 1800, got %d", client.deleteCalls[2][0])
	}
	if sleeps.count(500*time.Millisecond) != 2 {
		t.Fatalf("expected 2 pauses between chunks, got %v", sleeps.delays)
	}
}

func TestClearAll_EmptySheet(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(0)}
	u, _ := newTestUploader(t, client, testConfig(50))

	cleared, err := u.ClearAll(context.Background(), "42", nil)
	if err != nil || cleared != 0 {
		t.Fatalf("expected no-op clear, got %d, %v", cleared, err)
	}
	if len(client.deleteCalls) != 0 {
		t.Fatalf("expected no delete calls, got %d", len(client.deleteCalls))
	}
}

func TestClearAll_RetriesMetadataWithFixedDelay(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		sheet:   inventorySheet(3),
		getErrs: []error{context.DeadlineExceeded, context.DeadlineExceeded, nil},
	}
	u, sleeps := newTestUploader(t, client, testConfig(50))

	cleared, err := u.ClearAll(context.Background(), "42", nil)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared != 3 || client.getCalls != 3 {
		t.Fatalf("expected 3 metadata calls and 3 rows, got %d calls and %d rows", client.getCalls, cleared)
	}
	if fmt.Sprint(sleeps.delays) != "[2s 2s]" {
		t.Fatalf("expected fixed retry delays, got %v", sleeps.delays)
	}
}

func TestClearAll_AbortsWhenChunkExhaustsRetries(t *testing.T) {
	t.Parallel()

	unavailable := &smartsheet.APIError{StatusCode: http.StatusServiceUnavailable}
	client := &fakeClient{
		sheet:      inventorySheet(500),
		deleteErrs: []error{nil, unavailable, unavailable, unavailable},
	}
	u, _ := newTestUploader(t, client, testConfig(50))

	cleared, err := u.ClearAll(context.Background(), "42", nil)
	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Op != "delete rows" || fatal.Batch != 2 {
		t.Fatalf("expected FatalError on chunk 2, got %v", err)
	}
	if cleared != 400 {
		t.Fatalf("expected first chunk to stay cleared, got %d", cleared)
	}
}

func TestClearAll_StopsWhenCancelled(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(850)}
	u, _ := newTestUploader(t, client, testConfig(50))

	ctx, cancel := context.WithCancel(context.Background())
	u.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	cleared, err := u.ClearAll(ctx, "42", nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if cleared != 400 || len(client.deleteCalls) != 1 {
		t.Fatalf("expected one chunk before cancellation, got %d calls and %d rows", len(client.deleteCalls), cleared)
	}
}

func TestClearAll_CancelDuringRequestCountsSentChunk(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(850)}
	u, _ := newTestUploader(t, client, testConfig(50))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.onWrite = cancel

	cleared, err := u.ClearAll(ctx, "42", nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if cleared != 400 || len(client.deleteCalls) != 1 {
		t.Fatalf("expected the in-flight chunk to complete and count, got %d calls and %d rows", len(client.deleteCalls), cleared)
	}
}

func TestClearAll_ReportsProgressAgainstSheetSize(t *testing.T) {
	t.Parallel()

	client := &fakeClient{sheet: inventorySheet(850)}
	u, _ := newTestUploader(t, client, testConfig(50))

	var progress [][2]int
	if _, err := u.ClearAll(context.Background(), "42", func(done, total int) {
		progress = append(progress, [2]int{done, total})
	}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if fmt.Sprint(progress) != "[[400 850] [800 850] [850 850]]" {
		t.Fatalf("unexpected progress events: %v", progress)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if err := (Config{BatchSize: 0, MaxRetries: 1}).Validate(); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
	if err := (Config{BatchSize: 1, MaxRetries: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero retries")
	}
}
