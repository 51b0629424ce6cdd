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
	assert.Equal(t, "skip-on-conflict", cfg.Scheduler.DefaultStrategy)
	assert.Equal(t, []string{"intervalo", "break", "recess"}, cfg.Scheduler.BreakKeywords)
	assert.Len(t, cfg.Scheduler.DefaultDays, 5)
	assert.Contains(t, cfg.Scheduler.DefaultSlots, "Intervalo")
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Contains(t, cfg.Database.DSN(), "dbname=sma_timetable")
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_BREAK_KEYWORDS", " lanche , ,recreio")
	v.Set("SCHEDULER_PROPOSAL_TTL", "not-a-duration")
	v.Set("EXPORTS_SIGNED_URL_TTL", "15m")

	cfg := fromViper(v)

	assert.Equal(t, []string{"lanche", "recreio"}, cfg.Scheduler.BreakKeywords)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ProposalTTL)
	assert.Equal(t, 15*time.Minute, cfg.Exports.SignedURLTTL)
}
