package database

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateUpIsRepeatable(t *testing.T) {
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("set TEST_DATABASE_URL to run migration tests")
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, MigrateUp(connStr))
	}

	version, dirty, err := MigrationVersion(connStr)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)
}

func TestMigrateDownRejectsNonPositiveSteps(t *testing.T) {
	err := MigrateDown("postgres://unused", 0)
	assert.ErrorContains(t, err, "steps must be positive")
}
