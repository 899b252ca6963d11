package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Titles []string
}

func TestRecordPromote(t *testing.T) {
	assert := assert.New(t)

	record := &Record[sample]{Name: "test"}
	assert.False(record.Loaded())

	assert.Equal(Success, record.Promote(sample{Titles: []string{"a"}}))
	assert.True(record.Loaded())
	assert.Equal(NoChange, record.Promote(sample{Titles: []string{"a"}}))
	assert.Equal(Success, record.Promote(sample{Titles: []string{"a", "b"}}))
	assert.Equal([]string{"a", "b"}, record.Current().Titles)

	record.Clear()
	assert.False(record.Loaded())
	assert.Nil(record.Current().Titles)
}
