package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opteryx-data/opteryx-go/core"
)

// scriptedService fakes the statement endpoints: submissions are recorded,
// status bodies are served in order (last one repeats) and result pages are
// looked up by offset.
type scriptedService struct {
	mu          sync.Mutex
	handle      string
	statusCode  int
	statuses    []string
	statusIdx   int
	resultPages map[int]string
	submits     []submitRequest
	resultReqs  []url.Values
}

func (s *scriptedService) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case req.Method == http.MethodPost && req.URL.Path == "/api/v1/statements":
		var submit submitRequest
		_ = json.NewDecoder(req.Body).Decode(&submit)
		s.submits = append(s.submits, submit)

		if s.handle == "" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"statementHandle":"` + s.handle + `"}`))

	case req.URL.Path == "/api/v1/statements/"+s.handle+"/results":
		s.resultReqs = append(s.resultReqs, req.URL.Query())

		offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
		page, ok := s.resultPages[offset]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(page))

	case req.URL.Path == "/api/v1/statements/"+s.handle:
		if s.statusCode != 0 {
			w.WriteHeader(s.statusCode)
			return
		}

		status := s.statuses[len(s.statuses)-1]
		if s.statusIdx < len(s.statuses) {
			status = s.statuses[s.statusIdx]
			s.statusIdx++
		}
		_, _ = w.Write([]byte(status))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *scriptedService) submitted() []submitRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits
}

func newTestSession(t *testing.T, handler http.Handler) *Session {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	session, err := Connect(&Config{Host: u.Hostname(), Port: port})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	return session
}

func succeededWithData() *scriptedService {
	return &scriptedService{
		handle: "h-1",
		statuses: []string{
			`{"status":{"state":"SUCCEEDED"},"total_rows":2,"columns":[{"name":"id"},{"name":"name"}],"data":[[1,"a"],[2,"b"]]}`,
		},
	}
}

func TestCursor_ExecuteAndFetch(t *testing.T) {
	r := require.New(t)

	service := succeededWithData()
	session := newTestSession(t, service)

	cursor, err := session.Cursor()
	r.NoError(err)

	// nothing materialized yet
	r.Equal(-1, cursor.RowCount())
	r.Nil(cursor.Description())

	r.NoError(cursor.Execute(context.Background(), "SELECT id, name FROM t"))

	r.Equal(2, cursor.RowCount())
	r.Equal(core.Header{"id", "name"}, cursor.Description())

	row, err := cursor.FetchOne()
	r.NoError(err)
	r.Equal(core.Row{float64(1), "a"}, row)

	rest, err := cursor.FetchAll()
	r.NoError(err)
	r.Equal([]core.Row{{float64(2), "b"}}, rest)

	// end of data is a nil row, idempotently
	row, err = cursor.FetchOne()
	r.NoError(err)
	r.Nil(row)

	row, err = cursor.FetchOne()
	r.NoError(err)
	r.Nil(row)
}

func TestCursor_FetchMany(t *testing.T) {
	r := require.New(t)

	session := newTestSession(t, succeededWithData())

	cursor, err := session.Cursor()
	r.NoError(err)
	r.NoError(cursor.Execute(context.Background(), "SELECT id, name FROM t"))

	// explicit size
	rows, err := cursor.FetchMany(1)
	r.NoError(err)
	r.Len(rows, 1)

	// default size falls back to the array size
	cursor.SetArraySize(10)
	rows, err = cursor.FetchMany(0)
	r.NoError(err)
	r.Len(rows, 1)

	rows, err = cursor.FetchMany(5)
	r.NoError(err)
	r.Empty(rows)
}

func TestCursor_PollsThenFetches(t *testing.T) {
	r := require.New(t)

	service := &scriptedService{
		handle: "h-1",
		statuses: []string{
			`{"status":{"state":"SUBMITTED"}}`,
			`{"status":{"state":"RUNNING"}}`,
			`{"status":{"state":"SUCCEEDED"},"total_rows":1,"columns":[{"name":"id"}],"data":[[7]]}`,
		},
	}
	session := newTestSession(t, service)

	cursor, err := session.Cursor()
	r.NoError(err)

	// don't actually sleep between polls
	cursor.poller.sleep = func(context.Context, time.Duration) error { return nil }

	r.NoError(cursor.Execute(context.Background(), "SELECT id FROM t"))
	r.Equal(1, cursor.RowCount())
}

func TestCursor_PaginatesResultsEndpoint(t *testing.T) {
	r := require.New(t)

	service := &scriptedService{
		handle:   "h-1",
		statuses: []string{`{"status":{"state":"SUCCEEDED"}}`},
		resultPages: map[int]string{
			0: `{"total_rows":3,"columns":[{"name":"id"}],"data":[[1],[2]]}`,
			2: `{"data":[[3]]}`,
		},
	}
	session := newTestSession(t, service)

	cursor, err := session.Cursor()
	r.NoError(err)
	cursor.SetArraySize(2)

	r.NoError(cursor.Execute(context.Background(), "SELECT id FROM t"))

	r.Equal(3, cursor.RowCount())
	r.Equal(core.Header{"id"}, cursor.Description())

	rows, err := cursor.FetchAll()
	r.NoError(err)
	r.Equal([]core.Row{{float64(1)}, {float64(2)}, {float64(3)}}, rows)

	// pages requested at monotonically increasing offsets
	r.Len(service.resultReqs, 2)
	r.Equal("0", service.resultReqs[0].Get("offset"))
	r.Equal("2", service.resultReqs[1].Get("offset"))
	r.Equal("2", service.resultReqs[0].Get("num_rows"))
}

func TestCursor_ParameterBinding(t *testing.T) {
	r := require.New(t)

	service := succeededWithData()
	session := newTestSession(t, service)

	cursor, err := session.Cursor()
	r.NoError(err)

	r.NoError(cursor.Execute(context.Background(), "SELECT * FROM t WHERE name=? AND id=?", "Earth", 1))

	submits := service.submitted()
	r.Len(submits, 1)
	r.Equal("SELECT * FROM t WHERE name=:p0 AND id=:p1", submits[0].SQLText)
	r.Equal(map[string]any{"p0": "Earth", "p1": float64(1)}, submits[0].Parameters)

	r.NoError(cursor.ExecuteNamed(context.Background(), "SELECT * FROM t WHERE name=:name", map[string]any{"name": "Mars"}))

	submits = service.submitted()
	r.Len(submits, 2)
	r.Equal("SELECT * FROM t WHERE name=:name", submits[1].SQLText)
	r.Equal(map[string]any{"name": "Mars"}, submits[1].Parameters)
}

func TestCursor_ExecuteMany(t *testing.T) {
	r := require.New(t)

	service := succeededWithData()
	session := newTestSession(t, service)

	cursor, err := session.Cursor()
	r.NoError(err)

	r.NoError(cursor.ExecuteMany(context.Background(), "SELECT ?", [][]any{{1}, {2}, {3}}))
	r.Len(service.submitted(), 3)
}

func TestCursor_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name     string
		service  *scriptedService
		wantKind core.ErrorKind
		wantMsg  string
	}{
		{
			name:     "missing statement handle",
			service:  &scriptedService{},
			wantKind: core.KindDatabase,
			wantMsg:  "no statement handle",
		},
		{
			name: "failed statement carries description",
			service: &scriptedService{
				handle:   "h-1",
				statuses: []string{`{"status":{"state":"FAILED","description":"relation does not exist"}}`},
			},
			wantKind: core.KindDatabase,
			wantMsg:  "relation does not exist",
		},
		{
			name: "unknown state is named",
			service: &scriptedService{
				handle:   "h-1",
				statuses: []string{`{"status":{"state":"DAYDREAMING"}}`},
			},
			wantKind: core.KindDatabase,
			wantMsg:  "DAYDREAMING",
		},
		{
			name: "handle not found",
			service: &scriptedService{
				handle:     "h-1",
				statusCode: http.StatusNotFound,
			},
			wantKind: core.KindProgramming,
			wantMsg:  "statement not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newTestSession(t, tt.service)

			cursor, err := session.Cursor()
			require.NoError(t, err)

			err = cursor.Execute(context.Background(), "SELECT 1")

			require.Error(t, err)
			assert.True(t, core.ErrorIsKind(err, tt.wantKind))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCursor_HTTPErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "json detail", body: `{"detail":"syntax error at line 1"}`, want: "syntax error at line 1"},
		{name: "raw body", body: `backend exploded`, want: "backend exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, tt.body, http.StatusUnprocessableEntity)
			})
			session := newTestSession(t, handler)

			cursor, err := session.Cursor()
			require.NoError(t, err)

			err = cursor.Execute(context.Background(), "SELEKT 1")

			require.Error(t, err)
			assert.True(t, core.ErrorIsKind(err, core.KindDatabase))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCursor_TransportFailure(t *testing.T) {
	r := require.New(t)

	server := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(server.URL)
	r.NoError(err)
	port, err := strconv.Atoi(u.Port())
	r.NoError(err)
	server.Close() // nobody listening anymore

	session, err := Connect(&Config{Host: u.Hostname(), Port: port})
	r.NoError(err)
	defer session.Close()

	cursor, err := session.Cursor()
	r.NoError(err)

	err = cursor.Execute(context.Background(), "SELECT 1")

	r.Error(err)
	r.True(core.ErrorIsKind(err, core.KindOperational))
}

func TestCursor_ClosedOperations(t *testing.T) {
	r := require.New(t)

	session := newTestSession(t, succeededWithData())

	cursor, err := session.Cursor()
	r.NoError(err)
	r.NoError(cursor.Execute(context.Background(), "SELECT id, name FROM t"))

	cursor.Close()

	err = cursor.Execute(context.Background(), "SELECT 1")
	r.True(core.ErrorIsKind(err, core.KindProgramming))

	_, err = cursor.FetchOne()
	r.True(core.ErrorIsKind(err, core.KindProgramming))

	_, err = cursor.FetchMany(1)
	r.True(core.ErrorIsKind(err, core.KindProgramming))

	_, err = cursor.FetchAll()
	r.True(core.ErrorIsKind(err, core.KindProgramming))

	err = cursor.ExecuteMany(context.Background(), "SELECT 1", [][]any{{1}})
	r.True(core.ErrorIsKind(err, core.KindProgramming))

	// closing twice is fine
	cursor.Close()
}

func TestCursor_BufferReplacedOnExecute(t *testing.T) {
	r := require.New(t)

	session := newTestSession(t, succeededWithData())

	cursor, err := session.Cursor()
	r.NoError(err)

	r.NoError(cursor.Execute(context.Background(), "SELECT id, name FROM t"))
	first, err := cursor.FetchOne()
	r.NoError(err)
	r.NotNil(first)

	// re-execute resets the read position and the buffer as a unit
	r.NoError(cursor.Execute(context.Background(), "SELECT id, name FROM t"))
	r.Equal(2, cursor.RowCount())

	rows, err := cursor.FetchAll()
	r.NoError(err)
	r.Len(rows, 2)
}

func TestCursor_RowsStream(t *testing.T) {
	r := require.New(t)

	session := newTestSession(t, succeededWithData())

	cursor, err := session.Cursor()
	r.NoError(err)
	r.NoError(cursor.Execute(context.Background(), "SELECT id, name FROM t"))

	stream, err := cursor.Rows()
	r.NoError(err)

	r.Equal(core.Header{"id", "name"}, stream.Header())

	var rows []core.Row
	for stream.HasNext() {
		row, err := stream.Next()
		r.NoError(err)
		rows = append(rows, row)
	}
	r.Len(rows, 2)

	// the stream consumed the buffer
	row, err := cursor.FetchOne()
	r.NoError(err)
	r.Nil(row)
}

func Test_httpError_NoBody(t *testing.T) {
	resp := &http.Response{
		Status: "503 Service Unavailable",
		Body:   http.NoBody,
	}

	err := httpError(resp)

	require.Error(t, err)
	assert.True(t, core.ErrorIsKind(err, core.KindDatabase))
	assert.Contains(t, err.Error(), "503")
}

func Test_submitRequest_OmitsEmptyParameters(t *testing.T) {
	body, err := json.Marshal(&submitRequest{SQLText: "SELECT 1"})
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(body), "parameters"))
}
