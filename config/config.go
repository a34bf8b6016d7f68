package config

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("api_pro_key", "API_PRO_KEY")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("log_level", "LOG_LEVEL")
		viper.BindEnv("bot_lang", "BOT_LANG")
		viper.BindEnv("alerts_file", "ALERTS_FILE")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("check_interval", "CHECK_INTERVAL")
		viper.BindEnv("check_concurrency", "CHECK_CONCURRENCY")
		viper.BindEnv("stop_timeout", "STOP_TIMEOUT")
		viper.BindEnv("delivery_timeout", "DELIVERY_TIMEOUT")
		viper.BindEnv("price_timeout", "PRICE_TIMEOUT")
		viper.BindEnv("price_retries", "PRICE_RETRIES")
		viper.BindEnv("price_backoff", "PRICE_BACKOFF")
		viper.BindEnv("price_concurrency", "PRICE_CONCURRENCY")
		viper.BindEnv("price_cache_ttl", "PRICE_CACHE_TTL")
		viper.BindEnv("metrics_flush_interval", "METRICS_FLUSH_INTERVAL")
		viper.BindEnv("admin_user_ids", "ADMIN_USER_IDS")

		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("debug", false)
		viper.SetDefault("log_level", "info")
		viper.SetDefault("bot_lang", "en")
		viper.SetDefault("alerts_file", "/app/data/alerts.json")
		viper.SetDefault("db_path", "/app/data/bot.db")
		viper.SetDefault("check_interval", 60*time.Second)
		viper.SetDefault("check_concurrency", 4)
		viper.SetDefault("stop_timeout", 5*time.Second)
		viper.SetDefault("delivery_timeout", 10*time.Second)
		viper.SetDefault("price_timeout", 15*time.Second)
		viper.SetDefault("price_retries", 2)
		viper.SetDefault("price_backoff", 500*time.Millisecond)
		viper.SetDefault("price_concurrency", 6)
		viper.SetDefault("price_cache_ttl", 30*time.Second)
		viper.SetDefault("metrics_flush_interval", 5*time.Minute)
		viper.SetDefault("admin_user_ids", "")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

// GetDuration accepts Go duration strings ("90s", "2m") from the environment.
func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}

// GetInt64Slice reads a comma or space separated list of ids. Entries that
// are not integers are skipped.
func GetInt64Slice(key string) []int64 {
	InitConfig()
	fields := strings.FieldsFunc(viper.GetString(key), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})

	var ids []int64
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
