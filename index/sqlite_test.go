package index

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `CREATE TABLE songs (latent_0 REAL, latent_1 REAL, "Artist(s)" TEXT, Genre TEXT, song TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO songs VALUES (1.0, 0.0, 'Drake', 'hip hop', 'One Dance'), (0.25, 0.75, 'Adele', 'pop', NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	t.Run("Reads", func(t *testing.T) {
		s, err := ReadSQLite(ctx, path, "songs")
		require.NoError(t, err)
		require.Equal(t, 2, s.Len())
		assert.Equal(t, []float32{0.25, 0.75}, s.Vector(1))
		assert.Equal(t, "Drake", s.Song(0).Artist)
		assert.Empty(t, s.Song(1).Title)
	})

	t.Run("InvalidTableName", func(t *testing.T) {
		_, err := ReadSQLite(ctx, path, "songs; DROP TABLE songs")
		assert.Error(t, err)
	})

	t.Run("MissingTable", func(t *testing.T) {
		_, err := ReadSQLite(ctx, path, "missing")
		assert.Error(t, err)
	})
}
