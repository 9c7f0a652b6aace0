package ui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTTY_WithBuffer_ReturnsFalse(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestIsTTY_WithRegularFile_ReturnsFalse(t *testing.T) {
	// Given: a regular file
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	// Then: it is not a terminal
	assert.False(t, IsTTY(f))
	assert.False(t, UseColor(f))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func TestNoColorStyles_RenderPlainText(t *testing.T) {
	s := NoColorStyles()

	assert.Equal(t, "gap", s.Warning.Render("gap"))
	assert.Equal(t, " kafka ", s.Cell.Render("kafka"))
}

func TestStylesFor_BufferIsPlain(t *testing.T) {
	s := StylesFor(&bytes.Buffer{})

	assert.Equal(t, "title", s.Title.Render("title"))
}
