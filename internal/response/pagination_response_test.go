package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 20, 45)
	assert.Equal(t, &Pagination{Page: 2, PageSize: 20, TotalPages: 3, TotalItems: 45, HasMore: true, From: 21, To: 40}, p)

	p = NewPagination(3, 20, 5, 45)
	assert.False(t, p.HasMore)
	assert.Equal(t, 41, p.From)
	assert.Equal(t, 45, p.To)

	p = NewPagination(1, 20, 0, 0)
	assert.Equal(t, int64(0), p.TotalPages)
	assert.Zero(t, p.From)
	assert.False(t, p.HasMore)
}
