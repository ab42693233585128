package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, 10*time.Second, cfg.Cache.RosterTTL)
	assert.Equal(t, 10*time.Second, cfg.Cache.CICOTTL)
	assert.Equal(t, IncidentSourcePostgres, cfg.IncidentSource)
	assert.Equal(t, "BehaviorLogs", cfg.Sheets.IncidentRange)
	assert.Equal(t, 1, cfg.Cache.WarmWorkers)
}

func TestFromViperCollectionTTLOverride(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("CACHE_TTL", "30s")
	v.Set("CACHE_TTL_INCIDENTS", "1m")
	v.Set("CACHE_TTL_HOLIDAYS", "not-a-duration")

	cfg := fromViper(v)

	assert.Equal(t, 30*time.Second, cfg.Cache.RosterTTL)
	assert.Equal(t, time.Minute, cfg.Cache.IncidentsTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.HolidaysTTL)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a , ,http://b"))
}
