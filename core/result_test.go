package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opteryx-data/opteryx-go/core"
	"github.com/opteryx-data/opteryx-go/core/builders"
)

func testRows() []core.Row {
	return []core.Row{
		{int64(1), "a"},
		{int64(2), "b"},
		{int64(3), "c"},
	}
}

func TestNewResult(t *testing.T) {
	r := require.New(t)

	next, hasNext := builders.NextRows(testRows())
	stream := builders.NewResultStreamBuilder().
		WithNextFunc(next, hasNext).
		WithHeader(core.Header{"id", "name"}).
		Build()

	result, err := core.NewResult(stream)
	r.NoError(err)

	r.Equal(3, result.Len())
	r.Equal(core.Header{"id", "name"}, result.Header())

	rows, err := result.Rows(0, result.Len())
	r.NoError(err)
	r.Equal(testRows(), rows)
}

func TestResult_Rows(t *testing.T) {
	result := core.NewResultFromRows(core.Header{"id", "name"}, testRows())

	tests := []struct {
		name     string
		from, to int
		want     int
		wantErr  bool
	}{
		{name: "full range", from: 0, to: 3, want: 3},
		{name: "partial", from: 1, to: 2, want: 1},
		{name: "empty", from: 2, to: 2, want: 0},
		{name: "clamped past end", from: 1, to: 100, want: 2},
		{name: "from past end", from: 50, to: 100, want: 0},
		{name: "negative from", from: -1, to: 2, wantErr: true},
		{name: "inverted", from: 2, to: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rows, err := result.Rows(tt.from, tt.to)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestResult_Wipe(t *testing.T) {
	r := require.New(t)

	result := core.NewResultFromRows(core.Header{"id", "name"}, testRows())
	result.Wipe()

	r.Equal(0, result.Len())
	r.Equal(core.Header{}, result.Header())
}
