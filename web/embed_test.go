package web

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	files := Static()

	for _, name := range []string{"index.html", "app.js", "editor.js", "style.css"} {
		data, err := fs.ReadFile(files, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}

	index, err := fs.ReadFile(files, "index.html")
	require.NoError(t, err)
	assert.Contains(t, string(index), `src="app.js"`)
}
