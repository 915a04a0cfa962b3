package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "migrations/0001_init.up.sql")
	assert.Contains(t, names, "migrations/0001_init.down.sql")

	up, err := fs.ReadFile(migrations, "migrations/0001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "guidance_failures")

	up, err = fs.ReadFile(migrations, "migrations/0002_failure_session.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "session_id")
	assert.Contains(t, names, "migrations/0002_failure_session.down.sql")
}
