package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"sheetsync/importer"
	"sheetsync/inventory"
	"sheetsync/smartsheet"
	"sheetsync/storage"
	"sheetsync/transform"
	"sheetsync/uploader"
)

const DefaultConfirmTimeout = 30 * time.Second

// ClientFactory builds a sheet client for an access token.
type ClientFactory func(credential string) (smartsheet.Client, error)

// Recorder stores finished runs.
type Recorder interface {
	RecordRun(run storage.Run) error
}

type Progress struct {
	Phase State
	Done  int
	Total int
}

type ProgressFunc func(Progress)

// Options are the per-session settings read from configuration and flags.
type Options struct {
	Format          string
	HeaderMode      importer.HeaderMode
	ExcelSheet      string
	Strategy        transform.Strategy
	Verbatim        bool
	DeriveAvailable bool
	Overwrite       bool
	Upload          uploader.Config
	ConfirmTimeout  time.Duration
}

type Config struct {
	Options       Options
	ClientFactory ClientFactory
	Recorder      Recorder
	Progress      ProgressFunc
	Logger        *slog.Logger
}

// Analysis describes a freshly read source file.
type Analysis struct {
	Path             string
	Format           string
	Sheet            string
	HeaderMode       importer.HeaderMode
	Rows             int
	Columns          int
	Headers          []string
	Indicators       []string
	PositionalLayout bool
}

// Outcome is the result of one upload run.
type Outcome struct {
	RunID        string
	State        State
	Err          error
	Declined     bool
	TimedOut     bool
	StartedAt    time.Time
	FinishedAt   time.Time
	SourcePath   string
	SheetID      string
	SheetName    string
	Strategy     string
	Overwrite    bool
	RowsRead     int
	RowsCleaned  int
	RowsCleared  int
	RowsUploaded int
	Warnings     []string
}

// Status is a point-in-time view of the session.
type Status struct {
	State      State
	SourcePath string
	SheetID    string
	SheetName  string
	Connected  bool
	Processing bool
}

// Session drives one operator through file selection, connection,
// confirmation and upload. At most one upload runs at a time.
type Session struct {
	opts     Options
	factory  ClientFactory
	recorder Recorder
	progress ProgressFunc
	logger   *slog.Logger

	processing atomic.Bool

	mu      sync.Mutex
	state   State
	source  *importer.SourceTable
	client  smartsheet.Client
	sheetID string
	sheet   *smartsheet.Sheet
	cancel  context.CancelFunc
}

func New(cfg Config) (*Session, error) {
	if cfg.ClientFactory == nil {
		return nil, errors.New("client factory is required")
	}
	if cfg.Options.Upload == (uploader.Config{}) {
		cfg.Options.Upload = uploader.DefaultConfig()
	}
	if err := cfg.Options.Upload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upload settings: %w", err)
	}
	if cfg.Options.ConfirmTimeout <= 0 {
		cfg.Options.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.Options.Strategy == "" {
		cfg.Options.Strategy = transform.StrategyAuto
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		opts:     cfg.Options,
		factory:  cfg.ClientFactory,
		recorder: cfg.Recorder,
		progress: cfg.Progress,
		logger:   logger,
		state:    Idle,
	}, nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a consistent view of the session.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		State:      s.state,
		SheetID:    s.sheetID,
		Connected:  s.client != nil,
		Processing: s.processing.Load(),
	}
	if s.source != nil {
		status.SourcePath = s.source.Path
	}
	if s.sheet != nil {
		status.SheetName = s.sheet.Name
	}
	return status
}

// SelectFile reads path and analyzes it. On failure the session stays in
// FileSelected and no table is kept.
func (s *Session) SelectFile(ctx context.Context, path string) (Analysis, error) {
	if s.processing.Load() {
		return Analysis{}, ErrAlreadyProcessing
	}
	if err := ctx.Err(); err != nil {
		return Analysis{}, classify("analyze", err)
	}

	s.mu.Lock()
	s.source = nil
	s.mu.Unlock()
	s.transition(FileSelected)

	reader, err := importer.ReaderForPath(path, s.opts.Format)
	if err != nil {
		return Analysis{}, inputError("analyze", err)
	}
	if excel, ok := reader.(*importer.ExcelReader); ok {
		excel.Sheet = s.opts.ExcelSheet
	}

	table, err := reader.Read(path, s.opts.HeaderMode)
	if err != nil {
		return Analysis{}, inputError("analyze", err)
	}

	analysis := Analysis{
		Path:             table.Path,
		Format:           table.Format,
		Sheet:            table.Sheet,
		HeaderMode:       table.HeaderMode,
		Rows:             table.RowCount(),
		Columns:          table.ColumnCount(),
		Headers:          table.Headers,
		Indicators:       inventory.CountIndicators(table.Headers),
		PositionalLayout: transform.PositionalApplicable(table.Headers),
	}
	s.logger.Info("analyzed source file",
		"file", path,
		"format", analysis.Format,
		"header_mode", analysis.HeaderMode,
		"rows", analysis.Rows,
		"columns", analysis.Columns,
		"indicators", len(analysis.Indicators),
	)

	s.mu.Lock()
	s.source = table
	s.mu.Unlock()
	s.transition(Analyzed)
	return analysis, nil
}

// Connect resolves locator to a sheet id and fetches the sheet with a client
// built from credential. On failure the previous connection and state are
// kept.
func (s *Session) Connect(ctx context.Context, credential, locator string) (*smartsheet.Sheet, error) {
	if s.processing.Load() {
		return nil, ErrAlreadyProcessing
	}
	if strings.TrimSpace(credential) == "" {
		return nil, inputError("connect", ErrMissingCredential)
	}

	sheetID, err := smartsheet.ExtractSheetID(locator)
	if err != nil {
		return nil, inputError("connect", fmt.Errorf("%w: %q", err, locator))
	}

	client, err := s.factory(credential)
	if err != nil {
		return nil, inputError("connect", err)
	}

	sheet, err := client.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, classify("connect", err)
	}

	s.mu.Lock()
	s.client = client
	s.sheetID = sheetID
	s.sheet = sheet
	s.mu.Unlock()
	s.logger.Info("connected to sheet", "sheet_id", sheetID, "name", sheet.Name, "columns", len(sheet.Columns), "rows", sheet.TotalRowCount)
	s.transition(Connected)
	return sheet, nil
}

// TestConnection fetches the connected sheet again.
func (s *Session) TestConnection(ctx context.Context) (*smartsheet.Sheet, error) {
	s.mu.Lock()
	client, sheetID := s.client, s.sheetID
	s.mu.Unlock()
	if client == nil {
		return nil, inputError("test connection", ErrNotConnected)
	}

	sheet, err := client.GetSheet(ctx, sheetID)
	if err != nil {
		return nil, classify("test connection", err)
	}

	s.mu.Lock()
	s.sheet = sheet
	s.mu.Unlock()
	return sheet, nil
}

// Process maps and cleans the analyzed table without touching the remote
// sheet.
func (s *Session) Process() (transform.Result, error) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()
	if source == nil {
		return transform.Result{}, inputError("mapping", ErrNoFile)
	}

	return transform.Process(source, transform.Options{
		Strategy:        s.opts.Strategy,
		Verbatim:        s.opts.Verbatim,
		DeriveAvailable: s.opts.DeriveAvailable,
		Logger:          s.logger,
	}), nil
}

// Cancel stops the running upload. It returns false when nothing is running.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Upload runs mapping, confirmation, the optional clear and the upload. A
// call made while another upload is running returns ErrAlreadyProcessing and
// changes nothing.
func (s *Session) Upload(ctx context.Context, confirmer Confirmer) (outcome Outcome) {
	if !s.processing.CompareAndSwap(false, true) {
		return Outcome{State: s.State(), Err: ErrAlreadyProcessing}
	}
	defer s.processing.Store(false)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	outcome = Outcome{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Overwrite: s.opts.Overwrite,
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("upload panicked", "run_id", outcome.RunID, "panic", r)
			outcome.Err = &Error{Kind: KindInternal, Phase: s.State().String(), Err: fmt.Errorf("panic: %v", r)}
			outcome.State = Failed
			s.transition(Failed)
		}
		outcome.FinishedAt = time.Now()
		s.record(outcome)
	}()

	s.run(runCtx, confirmer, &outcome)
	return outcome
}

func (s *Session) run(ctx context.Context, confirmer Confirmer, outcome *Outcome) {
	s.mu.Lock()
	source, client, sheetID, sheet := s.source, s.client, s.sheetID, s.sheet
	s.mu.Unlock()

	if source != nil {
		outcome.SourcePath = source.Path
	}
	outcome.SheetID = sheetID
	if sheet != nil {
		outcome.SheetName = sheet.Name
	}

	s.transition(Mapping)
	if source == nil {
		s.finish(outcome, inputError("mapping", ErrNoFile))
		return
	}
	if client == nil {
		s.finish(outcome, inputError("mapping", ErrNotConnected))
		return
	}

	result, err := s.Process()
	if err != nil {
		s.finish(outcome, err)
		return
	}
	outcome.Strategy = result.Table.Strategy
	outcome.RowsRead = result.RowsRead
	outcome.RowsCleaned = result.Table.Len()
	outcome.Warnings = result.Mapping.Warnings
	if result.Table.Len() == 0 {
		s.finish(outcome, inputError("mapping", ErrNoData))
		return
	}

	s.transition(AwaitingConfirmation)
	summary := buildSummary(result.Table, outcome.SheetName, s.opts.Overwrite, s.opts.Verbatim)
	answer, err := s.awaitConfirmation(ctx, confirmer, summary)
	if err != nil {
		s.finish(outcome, classify("confirmation", err))
		return
	}
	switch answer {
	case declined:
		outcome.Declined = true
		s.finish(outcome, &Error{Kind: KindCancelled, Phase: "confirmation", Err: errors.New("upload declined")})
		return
	case timedOut:
		outcome.TimedOut = true
		s.finish(outcome, &Error{Kind: KindCancelled, Phase: "confirmation", Err: fmt.Errorf("no answer within %s", s.opts.ConfirmTimeout)})
		return
	}

	up, err := uploader.New(client, s.opts.Upload, s.logger)
	if err != nil {
		s.finish(outcome, inputError("upload", err))
		return
	}

	if s.opts.Overwrite {
		s.transition(Clearing)
		cleared, err := up.ClearAll(ctx, sheetID, func(done, total int) {
			s.report(Progress{Phase: Clearing, Done: done, Total: total})
		})
		outcome.RowsCleared = cleared
		if err != nil {
			s.finish(outcome, classify("clear", err))
			return
		}
	}

	s.transition(Uploading)
	uploaded, err := up.UploadAll(ctx, sheetID, result.Table, func(done, total int) {
		s.report(Progress{Phase: Uploading, Done: done, Total: total})
	})
	outcome.RowsUploaded = uploaded
	if err != nil {
		s.finish(outcome, classify("upload", err))
		return
	}
	s.finish(outcome, nil)
}

type decision int

const (
	confirmed decision = iota
	declined
	timedOut
)

type confirmation struct {
	ok  bool
	err error
}

// awaitConfirmation asks confirmer on its own goroutine and waits for the
// answer, the timeout or cancellation, whichever comes first.
func (s *Session) awaitConfirmation(ctx context.Context, confirmer Confirmer, summary Summary) (decision, error) {
	if confirmer == nil {
		return declined, inputError("confirmation", ErrNoConfirmer)
	}

	answers := make(chan confirmation, 1)
	go func() {
		ok, err := confirmer.Confirm(ctx, summary)
		answers <- confirmation{ok: ok, err: err}
	}()

	timer := time.NewTimer(s.opts.ConfirmTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return declined, ctx.Err()
	case <-timer.C:
		s.logger.Warn("confirmation timed out", "timeout", s.opts.ConfirmTimeout)
		return timedOut, nil
	case answer := <-answers:
		if answer.err != nil {
			s.logger.Warn("confirmation failed", "error", answer.err)
			return declined, nil
		}
		if !answer.ok {
			return declined, nil
		}
		return confirmed, nil
	}
}

func (s *Session) finish(outcome *Outcome, err error) {
	if err == nil {
		outcome.State = Completed
		s.transition(Completed)
		s.logger.Info("upload completed", "run_id", outcome.RunID, "rows_cleared", outcome.RowsCleared, "rows_uploaded", outcome.RowsUploaded)
		return
	}

	classified := classify(strings.ToLower(s.State().String()), err)
	outcome.Err = classified
	if classified.Kind == KindCancelled {
		outcome.State = Cancelled
		s.transition(Cancelled)
		s.logger.Warn("upload cancelled", "run_id", outcome.RunID, "phase", classified.Phase, "reason", classified.Err)
		return
	}
	outcome.State = Failed
	s.transition(Failed)
	s.logger.Error("upload failed", "run_id", outcome.RunID, "phase", classified.Phase, "kind", classified.Kind.String(), "error", classified.Err)
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	previous := s.state
	s.state = next
	s.mu.Unlock()
	if previous != next {
		s.logger.Debug("session state changed", "from", previous.String(), "to", next.String())
	}
}

func (s *Session) report(progress Progress) {
	if s.progress != nil {
		s.progress(progress)
	}
}

func (s *Session) record(outcome Outcome) {
	if s.recorder == nil {
		return
	}

	mode := "append"
	if outcome.Overwrite {
		mode = "overwrite"
	}
	run := storage.Run{
		ID:           outcome.RunID,
		StartedAt:    outcome.StartedAt,
		FinishedAt:   outcome.FinishedAt,
		SourceFile:   outcome.SourcePath,
		SheetID:      outcome.SheetID,
		SheetName:    outcome.SheetName,
		Mode:         mode,
		Strategy:     outcome.Strategy,
		State:        outcome.State.String(),
		RowsRead:     outcome.RowsRead,
		RowsCleaned:  outcome.RowsCleaned,
		RowsCleared:  outcome.RowsCleared,
		RowsUploaded: outcome.RowsUploaded,
	}
	if outcome.Err != nil {
		run.Error = outcome.Err.Error()
	}
	if err := s.recorder.RecordRun(run); err != nil {
		s.logger.Warn("could not record run", "run_id", outcome.RunID, "error", err)
	}
}
