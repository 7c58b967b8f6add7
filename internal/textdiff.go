package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Extractor outputs checked for readable text, best first.
var textSources = []string{
	"htmltotext.txt",
	filepath.Join("readability", "content.txt"),
	filepath.Join("mercury", "content.txt"),
}

var htmlSources = []string{
	"singlefile.html",
	"output.html",
	filepath.Join("readability", "content.html"),
}

// SnapshotText returns the readable text of the snapshot stored in dir.
// Plain-text extractor output wins; archived HTML is converted to Markdown
// otherwise.
func SnapshotText(dir string) (text, source string, err error) {
	for _, name := range textSources {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return string(data), name, nil
		}
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	for _, name := range htmlSources {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		md, err := conv.ConvertString(string(data))
		if err != nil {
			return "", name, fmt.Errorf("convert %s: %w", name, err)
		}
		return md, name, nil
	}

	return "", "", fmt.Errorf("no text output in %s: %w", dir, os.ErrNotExist)
}

type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
}

func (s DiffStats) Changed() bool {
	return s.Added > 0 || s.Removed > 0
}

// DiffText is a line diff of two texts rendered with "+", "-" and " "
// prefixes. context limits unchanged lines kept around each change; a
// negative value keeps all of them.
func DiffText(before, after string, context int) (string, DiffStats) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	type line struct {
		op   diffmatchpatch.Operation
		text string
	}
	var all []line
	var stats DiffStats
	for _, d := range diffs {
		for _, l := range splitLines(d.Text) {
			all = append(all, line{d.Type, l})
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				stats.Added++
			case diffmatchpatch.DiffDelete:
				stats.Removed++
			default:
				stats.Unchanged++
			}
		}
	}

	keep := make([]bool, len(all))
	for i, l := range all {
		if l.op == diffmatchpatch.DiffEqual && context >= 0 {
			continue
		}
		keep[i] = true
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(all)-1, i+context); j++ {
			keep[j] = true
		}
	}

	var out strings.Builder
	skipped := false
	for i, l := range all {
		if !keep[i] {
			skipped = true
			continue
		}
		if skipped {
			out.WriteString("@@\n")
			skipped = false
		}
		switch l.op {
		case diffmatchpatch.DiffInsert:
			out.WriteString("+")
		case diffmatchpatch.DiffDelete:
			out.WriteString("-")
		default:
			out.WriteString(" ")
		}
		out.WriteString(l.text)
		out.WriteString("\n")
	}
	return out.String(), stats
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// IsNoText reports whether err means a snapshot had no readable output.
func IsNoText(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
