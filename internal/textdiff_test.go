package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffText(t *testing.T) {
	before := "title\nline one\nline two\nfooter\n"
	after := "title\nline one\nline 2\nfooter\nnew\n"

	diff, stats := DiffText(before, after, -1)
	assert.Equal(t, " title\n line one\n-line two\n+line 2\n footer\n+new\n", diff)
	assert.Equal(t, DiffStats{Added: 2, Removed: 1, Unchanged: 3}, stats)
	assert.True(t, stats.Changed())
}

func TestDiffTextContext(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "same")
	}
	before := strings.Join(lines, "\n") + "\nold\n"
	after := strings.Join(lines, "\n") + "\nnew\n"

	diff, _ := DiffText(before, after, 1)
	assert.Equal(t, "@@\n same\n-old\n+new\n", diff)
}

func TestDiffTextIdentical(t *testing.T) {
	diff, stats := DiffText("a\nb\n", "a\nb\n", 3)
	assert.Empty(t, diff)
	assert.False(t, stats.Changed())
}

func TestSnapshotTextPrefersPlainText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "htmltotext.txt"), []byte("plain"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "singlefile.html"), []byte("<p>html</p>"), 0644))

	text, source, err := SnapshotText(dir)
	require.NoError(t, err)
	assert.Equal(t, "plain", text)
	assert.Equal(t, "htmltotext.txt", source)
}

func TestSnapshotTextConvertsHTML(t *testing.T) {
	dir := t.TempDir()
	html := `<html><body><h1>Pricing</h1><p>Plans start at <strong>$10</strong>.</p></body></html>`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.html"), []byte(html), 0644))

	text, source, err := SnapshotText(dir)
	require.NoError(t, err)
	assert.Equal(t, "output.html", source)
	assert.Contains(t, text, "# Pricing")
	assert.Contains(t, text, "**$10**")
}

func TestSnapshotTextMissing(t *testing.T) {
	_, _, err := SnapshotText(t.TempDir())
	assert.True(t, IsNoText(err))
}
