package services

import (
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"remix-go/internal/config"
	"remix-go/internal/storage"
)

// postgresDSNEnv 指向一个可写的 PostgreSQL，格式为 key=value DSN，例如
// "host=localhost port=5432 user=postgres password=password dbname=remix_test sslmode=disable"。
const postgresDSNEnv = "REMIX_TEST_POSTGRES_DSN"

// newPostgresTestEnv 为每个测试建一个独立 schema，结束时删除。
// SQLite 只有一个连接，行锁和 READ COMMITTED 下的竞争只能在这里验证。
func newPostgresTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s 未设置", postgresDSNEnv)
	}

	admin, err := storage.InitDB(config.DatabaseConfig{Type: "postgres", DSN: dsn, LogLevel: "silent"})
	require.NoError(t, err)
	schema := "remix_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	require.NoError(t, admin.Exec("CREATE SCHEMA "+schema).Error)
	t.Cleanup(func() {
		admin.Exec("DROP SCHEMA " + schema + " CASCADE")
		if sqlDB, err := admin.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return newTestEnvWithDB(t, config.DatabaseConfig{
		Type:     "postgres",
		DSN:      dsn + " search_path=" + schema,
		LogLevel: "silent",
	})
}

func TestPostgres_ConcurrentAcceptCreatesOneDirectGroup(t *testing.T) {
	checkConcurrentAccept(t, newPostgresTestEnv(t))
}

func TestPostgres_ConcurrentAuthorsGetDistinctSeq(t *testing.T) {
	checkConcurrentSeq(t, newPostgresTestEnv(t))
}
