package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "attendance.db", cfg.Database.Path)
	assert.Equal(t, 20*time.Minute, cfg.Sessions.DefaultTTL)
	assert.Equal(t, 6, cfg.Sessions.CodeLength)
	assert.False(t, cfg.Sessions.RequireEnrollment)
	assert.Equal(t, "log", cfg.Notify.Transport)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Admin.Email)
	assert.Equal(t, "Administrator", cfg.Admin.Name)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("DB_DRIVER", "POSTGRES")
	v.Set("SESSION_DEFAULT_TTL", "45m")
	v.Set("SESSION_MAX_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("ADMIN_EMAIL", "root@school.test")
	v.Set("ADMIN_PASSWORD", "changeme")
	cfg := fromViper(v)

	require.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 45*time.Minute, cfg.Sessions.DefaultTTL)
	assert.Equal(t, 4*time.Hour, cfg.Sessions.MaxTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "root@school.test", cfg.Admin.Email)
	assert.Equal(t, "changeme", cfg.Admin.Password)
}
