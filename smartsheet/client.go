package smartsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.smartsheet.com/2.0"
	DefaultTimeout = 120 * time.Second
)

// Client is the subset of the Smartsheet API used to replace sheet contents.
type Client interface {
	GetSheet(ctx context.Context, sheetID string) (*Sheet, error)
	DeleteRows(ctx context.Context, sheetID string, rowIDs []int64) error
	AppendRows(ctx context.Context, sheetID string, rows []Row) error
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	BaseURL    string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient httpDoer
}

type HTTPClient struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient httpDoer
}

func NewClient(cfg ClientConfig) (*HTTPClient, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("access token is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		httpClient: doer,
	}, nil
}

type Column struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Index   int    `json:"index"`
	Type    string `json:"type,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

type SheetRow struct {
	ID        int64 `json:"id"`
	RowNumber int   `json:"rowNumber"`
}

// Sheet is the metadata needed to clear and refill a sheet.
type Sheet struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Permalink     string     `json:"permalink,omitempty"`
	TotalRowCount int        `json:"totalRowCount"`
	Columns       []Column   `json:"columns"`
	Rows          []SheetRow `json:"rows"`
}

func (s *Sheet) RowIDs() []int64 {
	ids := make([]int64, 0, len(s.Rows))
	for _, row := range s.Rows {
		ids = append(ids, row.ID)
	}
	return ids
}

func (s *Sheet) ColumnTitles() []string {
	titles := make([]string, 0, len(s.Columns))
	for _, column := range s.Columns {
		titles = append(titles, column.Title)
	}
	return titles
}

// ColumnID resolves a column by exact title, then case-insensitively.
func (s *Sheet) ColumnID(title string) (int64, bool) {
	for _, column := range s.Columns {
		if column.Title == title {
			return column.ID, true
		}
	}
	for _, column := range s.Columns {
		if strings.EqualFold(strings.TrimSpace(column.Title), strings.TrimSpace(title)) {
			return column.ID, true
		}
	}
	return 0, false
}

type Cell struct {
	ColumnID int64 `json:"columnId"`
	Value    any   `json:"value"`
}

// Row is a new row appended to the bottom of a sheet.
type Row struct {
	ToBottom bool   `json:"toBottom"`
	Cells    []Cell `json:"cells"`
}

type resultResponse struct {
	Message    string `json:"message"`
	ResultCode int    `json:"resultCode"`
}

func (c *HTTPClient) GetSheet(ctx context.Context, sheetID string) (*Sheet, error) {
	var out Sheet
	if err := c.doJSON(ctx, http.MethodGet, "/sheets/"+url.PathEscape(sheetID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteRows(ctx context.Context, sheetID string, rowIDs []int64) error {
	if len(rowIDs) == 0 {
		return errors.New("delete rows payload must not be empty")
	}

	ids := make([]string, 0, len(rowIDs))
	for _, id := range rowIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("ignoreRowsNotFound", "true")

	path := fmt.Sprintf("/sheets/%s/rows?%s", url.PathEscape(sheetID), query.Encode())
	var out resultResponse
	return c.doJSON(ctx, http.MethodDelete, path, nil, &out)
}

func (c *HTTPClient) AppendRows(ctx context.Context, sheetID string, rows []Row) error {
	if len(rows) == 0 {
		return errors.New("append rows payload must not be empty")
	}

	payload := make([]Row, len(rows))
	for i, row := range rows {
		row.ToBottom = true
		payload[i] = row
	}

	var out resultResponse
	return c.doJSON(ctx, http.MethodPost, "/sheets/"+url.PathEscape(sheetID)+"/rows", payload, &out)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpointPath string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpointPath, bodyReader)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, endpointPath, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, endpointPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newAPIError(method, endpointPath, resp.StatusCode, responseBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response %s %s: %w", method, endpointPath, err)
	}
	return nil
}
