package rotate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/klauspost/compress/gzip"
	"github.com/relex/caddy-gelf-agent/stats"
	"github.com/relex/gotils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNumberedLines(t *testing.T, path string, count int) {
	builder := &strings.Builder{}
	for i := 1; i <= count; i++ {
		fmt.Fprintf(builder, "line %04d\n", i)
	}
	require.NoError(t, os.WriteFile(path, []byte(builder.String()), 0o644))
}

func TestRotatorKeepsTail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "access.log")
	writeNumberedLines(t, logPath, 1500)

	recorder := stats.NewRecorder()
	rotator, err := NewRotator(logger.Root(), logPath, Config{
		SizeLimit:     datasize.KB,
		CheckInterval: 300 * time.Second,
		KeepLines:     1000,
	}, recorder)
	require.NoError(t, err)

	assert.True(t, rotator.MaybeRotate())

	content, rerr := os.ReadFile(logPath)
	require.NoError(t, rerr)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	assert.Len(t, lines, 1000)
	assert.Equal(t, "line 0501", lines[0])
	assert.Equal(t, "line 1500", lines[999])
	assert.Equal(t, int64(1), recorder.Snapshot().Rotations)
}

func TestRotatorSkipsSmallFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "access.log")
	writeNumberedLines(t, logPath, 10)
	before, err := os.ReadFile(logPath)
	require.NoError(t, err)

	recorder := stats.NewRecorder()
	rotator, rerr := NewRotator(logger.Root(), logPath, Config{
		SizeLimit:     datasize.MB,
		CheckInterval: 300 * time.Second,
		KeepLines:     1000,
	}, recorder)
	require.NoError(t, rerr)

	assert.False(t, rotator.MaybeRotate())

	after, aerr := os.ReadFile(logPath)
	require.NoError(t, aerr)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(0), recorder.Snapshot().Rotations)
}

func TestRotatorIgnoresMissingFile(t *testing.T) {
	rotator, err := NewRotator(logger.Root(), filepath.Join(t.TempDir(), "absent.log"), Config{
		SizeLimit:     datasize.KB,
		CheckInterval: 300 * time.Second,
		KeepLines:     1000,
	}, stats.NewRecorder())
	require.NoError(t, err)
	assert.False(t, rotator.MaybeRotate())
}

func TestRotatorArchivesRemainder(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "access.log")
	archiveDir := filepath.Join(tempDir, "archive")
	require.NoError(t, os.Mkdir(archiveDir, 0o755))
	writeNumberedLines(t, logPath, 300)

	rotator, err := NewRotator(logger.Root(), logPath, Config{
		SizeLimit:     datasize.KB,
		CheckInterval: 300 * time.Second,
		KeepLines:     100,
		ArchiveDir:    archiveDir,
	}, stats.NewRecorder())
	require.NoError(t, err)

	assert.True(t, rotator.MaybeRotate())

	entries, derr := os.ReadDir(archiveDir)
	require.NoError(t, derr)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^access-\d{8}T\d{6}\.\d{9}\.log\.gz$`, entries[0].Name())

	compressed, rerr := os.ReadFile(filepath.Join(archiveDir, entries[0].Name()))
	require.NoError(t, rerr)
	decompressor, gerr := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, gerr)
	archived := &bytes.Buffer{}
	_, cerr := archived.ReadFrom(decompressor)
	require.NoError(t, cerr)

	// archive holds exactly the trimmed head
	archivedLines := strings.Split(strings.TrimRight(archived.String(), "\n"), "\n")
	assert.Len(t, archivedLines, 200)
	assert.Equal(t, "line 0001", archivedLines[0])
	assert.Equal(t, "line 0200", archivedLines[199])
}

func TestRotatorFailsOnMissingArchiveDir(t *testing.T) {
	_, err := NewRotator(logger.Root(), "/var/log/caddy/access.log", Config{
		SizeLimit:     datasize.KB,
		CheckInterval: 300 * time.Second,
		KeepLines:     1000,
		ArchiveDir:    filepath.Join(t.TempDir(), "nonexistent"),
	}, stats.NewRecorder())
	assert.ErrorContains(t, err, "failed to open archive dir")
}

func TestSplitTail(t *testing.T) {
	remainder, retained := splitTail([]byte("a\nb\nc\n"), 2)
	assert.Equal(t, "a\n", string(remainder))
	assert.Equal(t, "b\nc\n", string(retained))

	remainder, retained = splitTail([]byte("a\nb\nc\n"), 5)
	assert.Nil(t, remainder)
	assert.Equal(t, "a\nb\nc\n", string(retained))

	// unterminated final line counts as a line
	remainder, retained = splitTail([]byte("a\nb\nc"), 1)
	assert.Equal(t, "a\nb\n", string(remainder))
	assert.Equal(t, "c", string(retained))

	remainder, retained = splitTail(nil, 3)
	assert.Nil(t, remainder)
	assert.Empty(t, retained)
}

func TestRotatorConfigVerification(t *testing.T) {
	valid := Config{SizeLimit: 500 * datasize.KB, CheckInterval: 300 * time.Second, KeepLines: 1000}
	assert.NoError(t, valid.VerifyConfig())

	noSize := valid
	noSize.SizeLimit = 0
	assert.EqualError(t, noSize.VerifyConfig(), ".sizeLimit is unspecified")

	badInterval := valid
	badInterval.CheckInterval = 0
	assert.Error(t, badInterval.VerifyConfig())

	badLines := valid
	badLines.KeepLines = 0
	assert.Error(t, badLines.VerifyConfig())
}
