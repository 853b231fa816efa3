package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automodel/internal/cad"
)

func testSolid(t *testing.T) *cad.Solid {
	t.Helper()
	solid, err := cad.NewWorkplane("XY").Box(10, 20, 30).Solid()
	require.NoError(t, err)
	return solid
}

func TestExportImport_RoundTrip(t *testing.T) {
	store := &Store{tempDir: t.TempDir()}

	path, err := store.Export(testSolid(t))
	require.NoError(t, err)
	assert.FileExists(t, path)

	handle, err := store.Import(path)
	require.NoError(t, err)
	assert.Equal(t, 12, handle.TriangleCount())
}

func TestImport_DeletesTempArtifact(t *testing.T) {
	store := &Store{tempDir: t.TempDir()}

	path, err := store.Export(testSolid(t))
	require.NoError(t, err)

	_, err = store.Import(path)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "temp artifact should be removed after import")
}

func TestImport_KeepsPermanentFile(t *testing.T) {
	store := &Store{tempDir: t.TempDir()}
	permanentDir := t.TempDir()

	path, err := store.Export(testSolid(t))
	require.NoError(t, err)
	handle, err := store.Import(path)
	require.NoError(t, err)

	saved := filepath.Join(permanentDir, "part.stl")
	require.NoError(t, store.Save(handle, saved))

	reloaded, err := store.Import(saved)
	require.NoError(t, err)
	assert.Equal(t, 12, reloaded.TriangleCount())
	assert.FileExists(t, saved, "user-chosen files must never be deleted")
}

func TestImport_TempFileRemovedEvenWhenCorrupt(t *testing.T) {
	tempDir := t.TempDir()
	store := &Store{tempDir: tempDir}

	path := filepath.Join(tempDir, "broken.stl")
	require.NoError(t, os.WriteFile(path, []byte("not an stl"), 0o644))

	_, err := store.Import(path)
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed temp import should still clean up")
}

func TestExport_RejectsEmptySolid(t *testing.T) {
	store := &Store{tempDir: t.TempDir()}

	_, err := store.Export(nil)
	assert.Error(t, err)
	_, err = store.Export(&cad.Solid{})
	assert.Error(t, err)
}

func TestSave_RejectsNilHandle(t *testing.T) {
	store := &Store{tempDir: t.TempDir()}
	assert.Error(t, store.Save(nil, filepath.Join(t.TempDir(), "x.stl")))
}

func TestHandleData_FlattensVertices(t *testing.T) {
	store := &Store{tempDir: t.TempDir()}

	path, err := store.Export(testSolid(t))
	require.NoError(t, err)
	handle, err := store.Import(path)
	require.NoError(t, err)

	data := handle.Data()
	assert.Equal(t, 12, data.TriangleCount)
	assert.Len(t, data.Vertices, 12*9)
}
