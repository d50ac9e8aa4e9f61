package palette

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CLICmd{}).Run("list", &buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, " 0 #ff1744 255  23  68", lines[0])
	assert.True(t, strings.HasPrefix(lines[15], "15 #"), lines[15])
}

func TestExportCommand(t *testing.T) {
	c := &CLICmd{}
	c.Export.File = filepath.Join(t.TempDir(), "pixelgrid.pal")
	require.NoError(t, c.Run("export", nil))

	f, err := os.Open(c.Export.File)
	require.NoError(t, err)
	defer f.Close()

	pal, err := ReadRIFF(f)
	require.NoError(t, err)
	assert.Equal(t, Fixed(), pal)
}

func TestShowCommand(t *testing.T) {
	c := &CLICmd{}
	c.Export.File = filepath.Join(t.TempDir(), "pixelgrid.pal")
	require.NoError(t, c.Run("export", nil))

	var listed, shown bytes.Buffer
	require.NoError(t, c.Run("list", &listed))
	c.Show.File = c.Export.File
	require.NoError(t, c.Run("show", &shown))
	assert.Equal(t, listed.String(), shown.String())

	c.Show.File = filepath.Join(t.TempDir(), "missing.pal")
	assert.Error(t, c.Run("show", &shown))
}
