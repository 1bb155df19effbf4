package verdict

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/verdict/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	tmpDir := t.TempDir()
	db, err := NewDatabase(
		filepath.Join(tmpDir, "records"),
		filepath.Join(tmpDir, "blobs"),
		WithAIProvider(mock.NewMockProvider()),
	)
	require.NoError(t, err)
	require.NotNil(t, db)
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		db := newTestDatabase(t)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.DocumentRepository())
		assert.NotNil(t, db.SegmentRepository())
		assert.NotNil(t, db.RuleRepository())
		assert.NotNil(t, db.ViolationRepository())
		assert.NotNil(t, db.EmbeddingRepository())
		assert.NotNil(t, db.BlobStore())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile, filepath.Join(t.TempDir(), "blobs"),
			WithAIProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db := newTestDatabase(t)

	// Close the database
	err := db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db := newTestDatabase(t)
	defer db.Close()

	t.Run("can create pipeline", func(t *testing.T) {
		p, err := db.NewPipeline()
		require.NoError(t, err)
		require.NotNil(t, p)
		p.Release()
	})

	t.Run("can create remediation service", func(t *testing.T) {
		service, err := db.NewRemediationService()
		require.NoError(t, err)
		require.NotNil(t, service)
	})
}
