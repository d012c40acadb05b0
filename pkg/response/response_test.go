package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaged(t *testing.T) {
	res := Paged(200, []string{"a", "b"}, 41, 3, 20)

	assert.Equal(t, "success", res.Status)
	page, ok := res.Data.(Page)
	if assert.True(t, ok) {
		assert.Equal(t, int64(41), page.Total)
		assert.Equal(t, 3, page.Pages)
		assert.Equal(t, 3, page.Page)
	}

	empty := Paged(200, []string{}, 0, 1, 20).Data.(Page)
	assert.Equal(t, 0, empty.Pages)
}

func TestError(t *testing.T) {
	res := Error(404, "work order not found")
	assert.Equal(t, "error", res.Status)
	assert.Equal(t, 404, res.StatusCode)
	assert.Nil(t, res.Data)
}
