package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// SheetsCells talks to the hosted spreadsheet grid over its values REST API.
// Requests carry a bearer token for a service identity with access to the
// document. 401/403 map to ErrPermission (fatal); everything else non-2xx is
// reported as a transient error the caller may retry.
type SheetsCells struct {
	client        *http.Client
	baseURL       string
	spreadsheetID string
	sheetName     string
	token         string
	log           Logger
}

// SheetsConfig configures the spreadsheet cell backend.
type SheetsConfig struct {
	BaseURL       string
	SpreadsheetID string
	SheetName     string
	AccessToken   string
}

// NewSheetsCells creates the spreadsheet-backed cell API.
func NewSheetsCells(cfg SheetsConfig, log Logger) *SheetsCells {
	return &SheetsCells{
		client:        &http.Client{Timeout: 15 * time.Second},
		baseURL:       cfg.BaseURL,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		token:         cfg.AccessToken,
		log:           log,
	}
}

func (s *SheetsCells) rangeURL(addr, suffix string) string {
	rng := url.PathEscape(fmt.Sprintf("%s!%s", s.sheetName, addr))
	return fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s%s", s.baseURL, s.spreadsheetID, rng, suffix)
}

func (s *SheetsCells) do(ctx context.Context, method, u string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet request failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, fmt.Errorf("sheet responded %d: %w", resp.StatusCode, ErrPermission)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("sheet responded %d", resp.StatusCode)
	}
	return resp, nil
}

// valueRange mirrors the values API payload: a list of rows, each a list of
// cell strings.
type valueRange struct {
	Values [][]string `json:"values"`
}

// ReadCell reads one cell. The API omits "values" entirely for empty cells.
func (s *SheetsCells) ReadCell(ctx context.Context, addr string) ([]byte, bool, error) {
	resp, err := s.do(ctx, http.MethodGet, s.rangeURL(addr, ""), nil)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	var vr valueRange
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, false, fmt.Errorf("decode sheet response: %w", err)
	}
	if len(vr.Values) == 0 || len(vr.Values[0]) == 0 {
		return nil, false, nil
	}
	return []byte(vr.Values[0][0]), true, nil
}

// WriteCell writes one cell with raw value input (no type coercion).
func (s *SheetsCells) WriteCell(ctx context.Context, addr string, data []byte) error {
	payload, err := json.Marshal(valueRange{Values: [][]string{{string(data)}}})
	if err != nil {
		return fmt.Errorf("marshal cell value: %w", err)
	}
	resp, err := s.do(ctx, http.MethodPut, s.rangeURL(addr, "?valueInputOption=RAW"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	resp.Body.Close()
	s.log.Debug("wrote sheet cell", "cell", addr, "bytes", len(data))
	return nil
}

// ClearCell clears one cell's content.
func (s *SheetsCells) ClearCell(ctx context.Context, addr string) error {
	resp, err := s.do(ctx, http.MethodPost, s.rangeURL(addr, ":clear"), bytes.NewReader([]byte("{}")))
	if err != nil {
		return err
	}
	resp.Body.Close()
	s.log.Debug("cleared sheet cell", "cell", addr)
	return nil
}
