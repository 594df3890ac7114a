package dom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
)

func TestDocument_MountAndSet(t *testing.T) {
	d := NewDocument("Molecules", "list", "detail")
	assert.True(t, d.Has("list"))
	assert.False(t, d.Has("form"))
	assert.Equal(t, []string{"form"}, d.Missing("list", "form", "detail"))

	require.NoError(t, d.Set("list", "<ul></ul>"))
	r, ok := d.Get("list")
	require.True(t, ok)
	assert.Equal(t, uint64(1), r.Version)
	assert.Equal(t, "<ul></ul>", string(d.HTML("list")))

	err := d.Set("form", "<form></form>")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMountPointMissing))

	d.Mount("form")
	d.Mount("form")
	assert.Equal(t, []string{"list", "detail", "form"}, d.IDs())

	d.Unmount("detail")
	assert.Equal(t, []string{"list", "form"}, d.IDs())
}

func TestDocument_FragmentsAndRender(t *testing.T) {
	d := NewDocument("HyperBlend", "stats", "graph")
	require.NoError(t, d.Set("stats", "<b>4</b>"))

	assert.Equal(t, map[string]string{"stats": "<b>4</b>"}, d.Fragments("stats", "nope"))
	assert.Len(t, d.Fragments(), 2)

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "<title>HyperBlend</title>")
	assert.Contains(t, out, `<div id="stats" data-version="1"><b>4</b></div>`)
	assert.Contains(t, out, `<div id="graph" data-version="0"></div>`)
}
