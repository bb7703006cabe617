package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/opteryx-data/opteryx-go/core"
)

// maxErrorBody caps how much of an error response is read for the message.
const maxErrorBody = 64 << 10

type submitRequest struct {
	SQLText    string         `json:"sqlText"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type submitResponse struct {
	StatementHandle string `json:"statementHandle"`
}

type statementStatus struct {
	State       string `json:"state"`
	Description string `json:"description,omitempty"`
}

// pageColumn is one entry of column metadata, or, when Values is present,
// one column of a column-oriented data payload.
type pageColumn struct {
	Name   string          `json:"name"`
	Type   string          `json:"type,omitempty"`
	Values json.RawMessage `json:"values,omitempty"`
}

// resultPage is the payload shape shared by the status and results
// endpoints: execution status plus, once available, result data.
type resultPage struct {
	Status    *statementStatus `json:"status,omitempty"`
	TotalRows *int64           `json:"total_rows,omitempty"`
	Columns   []pageColumn     `json:"columns,omitempty"`
	Data      json.RawMessage  `json:"data,omitempty"`
	NextPage  json.RawMessage  `json:"next_page,omitempty"`
}

// hasPayload reports whether result data is embedded in this page.
func (p *resultPage) hasPayload() bool {
	return p.Data != nil || p.Columns != nil
}

// hasNextPage interprets the loosely-typed next_page field: absent, null,
// false, zero and the empty string all mean no further page.
func (p *resultPage) hasNextPage() bool {
	switch strings.TrimSpace(string(p.NextPage)) {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

// do attaches authentication to the request, executes it and maps
// transport-level failures to operational errors.
func (s *Session) do(req *http.Request) (*http.Response, error) {
	s.auth.apply(req.Context(), req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, core.NewOperationalError(err, "connection error")
	}
	return resp, nil
}

// httpError converts an HTTP error response into a database error carrying
// the server-supplied detail when parseable, else the raw body.
func httpError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := ""
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		detail = payload.Detail
	}
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if detail == "" {
		detail = resp.Status
	}

	return core.NewDatabaseError(nil, "HTTP error: %s", detail)
}

// submitStatement posts the statement for asynchronous execution and returns
// the server-issued statement handle.
func (s *Session) submitStatement(ctx context.Context, sqlText string, parameters map[string]any) (string, error) {
	if err := s.checkClosed(); err != nil {
		return "", err
	}

	body, err := json.Marshal(&submitRequest{SQLText: sqlText, Parameters: parameters})
	if err != nil {
		return "", core.NewDataError(err, "cannot encode statement parameters")
	}

	endpoint := s.dataBaseURL() + "/api/v1/statements"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", core.NewInternalError(err, "building submit request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := s.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", httpError(resp)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", core.NewDatabaseError(err, "malformed submit response")
	}
	if out.StatementHandle == "" {
		return "", core.NewDatabaseError(nil, "no statement handle returned from server")
	}

	return out.StatementHandle, nil
}

// statementStatus fetches the current state of a submitted statement. The
// response may also embed result data once execution finishes.
func (s *Session) statementStatus(ctx context.Context, handle string) (*resultPage, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v1/statements/%s", s.dataBaseURL(), url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.NewInternalError(err, "building status request")
	}

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.NewProgrammingError("statement not found")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, httpError(resp)
	}

	var page resultPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, core.NewDatabaseError(err, "malformed status response")
	}

	return &page, nil
}

// statementResults fetches one page of results for a completed statement.
// Results may be embedded in the status response; otherwise the dedicated
// results endpoint is tried, falling back to the status payload on failure.
func (s *Session) statementResults(ctx context.Context, handle string, numRows, offset int) (*resultPage, error) {
	status, err := s.statementStatus(ctx, handle)
	if err != nil {
		return nil, err
	}
	if status.hasPayload() {
		return status, nil
	}

	endpoint := fmt.Sprintf("%s/api/v1/statements/%s/results?num_rows=%d&offset=%d",
		s.dataBaseURL(), url.PathEscape(handle), numRows, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return status, nil
	}

	resp, err := s.do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("results endpoint unavailable, using status payload")
		return status, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var page resultPage
		if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
			return nil, core.NewDatabaseError(err, "malformed results response")
		}
		return &page, nil
	}

	return status, nil
}
