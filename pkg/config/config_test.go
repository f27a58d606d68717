package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgendaDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "America/Sao_Paulo", cfg.Agenda.DefaultTimezone)
	assert.Equal(t, 366, cfg.Agenda.HorizonDays)
	assert.Equal(t, 93, cfg.Agenda.MaxWindowDays)
	assert.Equal(t, time.Monday, cfg.Agenda.WeekStart)
	assert.Equal(t, 2*time.Minute, cfg.Agenda.TemplateCacheTTL)
	assert.Equal(t, "@every 1m", cfg.Agenda.CacheWarmCron)
}

func TestLoadAgendaOverrides(t *testing.T) {
	t.Setenv("AGENDA_DEFAULT_TIMEZONE", "UTC")
	t.Setenv("AGENDA_WEEK_START", "Sunday")
	t.Setenv("AGENDA_MAX_WINDOW_DAYS", "31")
	t.Setenv("AGENDA_TEMPLATE_CACHE_TTL", "bogus")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Agenda.DefaultTimezone)
	assert.Equal(t, time.Sunday, cfg.Agenda.WeekStart)
	assert.Equal(t, 31, cfg.Agenda.MaxWindowDays)
	assert.Equal(t, 2*time.Minute, cfg.Agenda.TemplateCacheTTL)
}

func TestLoadRejectsUnknownWeekStart(t *testing.T) {
	t.Setenv("AGENDA_WEEK_START", "friday")

	_, err := Load()
	assert.Error(t, err)
}
