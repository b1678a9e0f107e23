package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsCoverEveryTable(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	body, err := migrations.ReadFile(names[0])
	require.NoError(t, err)
	sql := string(body)

	for _, table := range []string{"articles", "article_comments", "users", "user_logins", "posts", "post_comments"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Equal(t, 4, strings.Count(sql, "deleted_by_cascade  BOOLEAN"))
	assert.Equal(t, 2, strings.Count(sql, "deleted_at          TIMESTAMPTZ NULL"))
}
