package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, 60*time.Second, GetDuration("check_interval"))
	assert.Equal(t, 5*time.Second, GetDuration("stop_timeout"))
	assert.Equal(t, 2, GetInt("price_retries"))
	assert.Equal(t, 6, GetInt("price_concurrency"))
	assert.Equal(t, "/app/data/alerts.json", GetString("alerts_file"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CHECK_INTERVAL", "90s")
	t.Setenv("PRICE_RETRIES", "4")
	t.Setenv("LANG", "C.UTF-8")
	t.Setenv("BOT_LANG", "pl")

	assert.Equal(t, 90*time.Second, GetDuration("check_interval"))
	assert.Equal(t, 4, GetInt("price_retries"))
	assert.Equal(t, "pl", GetString("bot_lang"), "the system locale does not leak in")
}

func TestAdminUserIDs(t *testing.T) {
	assert.Empty(t, GetInt64Slice("admin_user_ids"))

	t.Setenv("ADMIN_USER_IDS", "42, 1001;x -7")
	assert.Equal(t, []int64{42, 1001, -7}, GetInt64Slice("admin_user_ids"))
}
