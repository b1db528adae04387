package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedOrder(t *testing.T) {
	pg, err := load(PostgresFS, "postgres")
	require.NoError(t, err)
	require.Len(t, pg, 2)
	assert.Equal(t, "001_mev_transactions.sql", pg[0].name)
	assert.Equal(t, "002_monitor_cursors.sql", pg[1].name)
	assert.Contains(t, pg[0].sql, "CREATE TABLE IF NOT EXISTS mev_transactions")

	ch, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Contains(t, ch[0].sql, "mev_verdicts")
}

func TestClickhouseMigrations_AreSplittable(t *testing.T) {
	files, err := load(ClickhouseFS, "clickhouse")
	require.NoError(t, err)

	for _, m := range files {
		require.NoError(t, validateNoSemicolonInStrings(m.sql), m.name)
		for _, stmt := range splitStatements(m.sql) {
			assert.False(t, strings.HasPrefix(stmt, "--"), "comment leaked into %s", m.name)
			assert.NotContains(t, stmt, ";")
		}
	}
}

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x UInt8);

-- second
CREATE TABLE b (y String)
ENGINE = Memory;
`
	stmts := splitStatements(input)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x UInt8)", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String)\nENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings("SELECT 'a'; SELECT 'it''s'"))
	assert.Error(t, validateNoSemicolonInStrings("SELECT 'a;b'"))
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/mev")
	require.NoError(t, err)
	assert.Equal(t, "mev", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}
