package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/Makepad-fr/tada/internal/model"
)

func useMono(t *testing.T) {
	t.Helper()
	SetTheme("mono")
	t.Cleanup(func() {
		SetTheme("classic")
		SetColorMode("auto")
	})
}

func sample() []model.Item {
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return []model.Item{
		{ID: "01A", Title: "Buy milk", Position: 0, CreatedAt: ts, UpdatedAt: ts},
		{ID: "01B", Title: "Write report", Description: "quarterly numbers", Position: 1, CreatedAt: ts, UpdatedAt: ts},
		{ID: "01C", Title: "Café visit", Position: 2, CreatedAt: ts, UpdatedAt: ts},
	}
}

func TestRenderListGolden(t *testing.T) {
	useMono(t)
	var buf bytes.Buffer
	RenderList(&buf, sample())

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, "list_mono", buf.Bytes())
}

func TestRenderEmptyListGolden(t *testing.T) {
	useMono(t)
	var buf bytes.Buffer
	RenderList(&buf, nil)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, "empty_mono", buf.Bytes())
}

func TestPanelPadsToWidestLine(t *testing.T) {
	useMono(t)
	var buf bytes.Buffer
	Panel(&buf, []string{"a", "abc", "é"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"+-----+",
		"| a   |",
		"| abc |",
		"| é   |",
		"+-----+",
	}, lines)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ü", 100)
	got := truncate(long)
	assert.Equal(t, maxTitleWidth, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "a b", truncate("a\nb"))
}

func TestColor(t *testing.T) {
	t.Cleanup(func() { SetColorMode("auto") })

	SetColorMode("always")
	assert.Equal(t, fgRed+"x"+reset, C(fgRed, "x"))
	assert.Equal(t, "x", C("", "x"))

	SetColorMode("never")
	assert.Equal(t, "x", C(fgRed, "x"))
}

func TestOKAndFail(t *testing.T) {
	useMono(t)
	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "boom")
	Hint(&buf, "run `todo ls`")
	assert.Equal(t, "ok added\nerror: boom\nHint: run `todo ls`\n", buf.String())
}
