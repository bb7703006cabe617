package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opteryx-data/opteryx-go/core"
)

func TestScalarConstructors(t *testing.T) {
	assert.Equal(t, "2024-03-07", core.Date(2024, 3, 7))
	assert.Equal(t, "09:05:00", core.Time(9, 5, 0))
	assert.Equal(t, "2024-03-07 09:05:00", core.Timestamp(2024, 3, 7, 9, 5, 0))
	assert.Equal(t, []byte{0x01, 0x02}, core.Binary([]byte{0x01, 0x02}))
}
