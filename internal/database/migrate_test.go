package database

import (
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// migrationName matches golang-migrate's file naming scheme.
var migrationName = regexp.MustCompile(`^(\d{6})_[a-z0-9_]+\.(up|down)\.sql$`)

func embeddedMigrations(t *testing.T) []string {
	t.Helper()
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names, "no migrations embedded")
	return names
}

// TestMigrations_Naming ensures every embedded file follows the
// NNNNNN_name.{up,down}.sql convention so golang-migrate picks it up.
func TestMigrations_Naming(t *testing.T) {
	for _, name := range embeddedMigrations(t) {
		base := strings.TrimPrefix(name, "migrations/")
		assert.Regexp(t, migrationName, base)
	}
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	names := embeddedMigrations(t)
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	for _, n := range names {
		if !strings.HasSuffix(n, ".up.sql") {
			continue
		}
		down := strings.Replace(n, ".up.sql", ".down.sql", 1)
		assert.True(t, present[down], "missing down migration for %s", n)
	}
}

// TestMigrations_SequentialVersions catches gaps and duplicates.
func TestMigrations_SequentialVersions(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range embeddedMigrations(t) {
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		m := migrationName.FindStringSubmatch(strings.TrimPrefix(name, "migrations/"))
		require.NotNil(t, m)
		assert.False(t, seen[m[1]], "duplicate migration version %s", m[1])
		seen[m[1]] = true
	}
	for i := 1; i <= len(seen); i++ {
		v := fmt.Sprintf("%06d", i)
		assert.True(t, seen[v], "missing migration version %s", v)
	}
}

// TestMigrations_SettingsKeysNamespaced keeps seeded setting keys in the
// "<group>.<name>" form the settings repository reads.
func TestMigrations_SettingsKeysNamespaced(t *testing.T) {
	data, err := migrationFiles.ReadFile("migrations/000003_site_settings.up.sql")
	require.NoError(t, err)
	keys := regexp.MustCompile(`\('([^']+)',`).FindAllStringSubmatch(string(data), -1)
	require.NotEmpty(t, keys)
	for _, k := range keys {
		assert.Regexp(t, `^[a-z]+\.[a-z_]+$`, k[1])
	}
}
