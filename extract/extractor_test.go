package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainTextExtract(t *testing.T) {
	ctx := context.Background()
	ex := NewPlainText()

	t.Run("single page", func(t *testing.T) {
		pages, err := ex.Extract(ctx, []byte("hello world"))
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, 1, pages[0].Page)
		assert.Equal(t, "hello world", pages[0].Text)
	})

	t.Run("form feed separated pages", func(t *testing.T) {
		pages, err := ex.Extract(ctx, []byte("page one\fpage two\fpage three"))
		require.NoError(t, err)
		require.Len(t, pages, 3)
		assert.Equal(t, 2, pages[1].Page)
		assert.Equal(t, "page two", pages[1].Text)
	})

	t.Run("empty pages keep numbering", func(t *testing.T) {
		pages, err := ex.Extract(ctx, []byte("one\f\fthree"))
		require.NoError(t, err)
		require.Len(t, pages, 3)
		assert.Empty(t, pages[1].Text)
		assert.Equal(t, 3, pages[2].Page)
	})
}
