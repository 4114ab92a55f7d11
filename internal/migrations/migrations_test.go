package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryDialectHasMatchingMigrations(t *testing.T) {
	var reference []string
	for _, driver := range []string{"postgres", "mysql", "sqlite3"} {
		dir, err := Dir(driver)
		require.NoError(t, err)

		entries, err := fs.ReadDir(migrationsFS, dir)
		require.NoError(t, err)

		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
			body, err := fs.ReadFile(migrationsFS, dir+"/"+e.Name())
			require.NoError(t, err)
			assert.NotEmpty(t, strings.TrimSpace(string(body)), "%s/%s is empty", dir, e.Name())
		}
		assert.Len(t, names, 10, driver)

		if reference == nil {
			reference = names
			continue
		}
		assert.Equal(t, reference, names, "%s migrations differ from postgres", driver)
	}
}

func TestDirUnknownDriver(t *testing.T) {
	_, err := Dir("oracle")
	assert.Error(t, err)
}
