package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "k8Qz!m2Rv#L9pX4tW7yB1nC6dF3gH5jS0aE"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envDBPassword, "secret")
	t.Setenv(envAWSRegion, "eu-west-1")
	t.Setenv(envS3Bucket, "uplora-videos")
	t.Setenv(envJWTSecret, testJWTSecret)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, int64(8*1024*1024), cfg.Upload.PartSize)
	assert.Equal(t, 10*time.Minute, cfg.Upload.PartURLExpiry)
	assert.Equal(t, time.Hour, cfg.Upload.StaleLockAge)
	assert.Equal(t, "@every 15m", cfg.Upload.ReaperSchedule)
	assert.False(t, cfg.Upload.SignRequiresLock)
	assert.Equal(t, 4*time.Minute+30*time.Second, cfg.Realtime.MaxConnectionLifetime)
	assert.Equal(t, 25*time.Second, cfg.Realtime.HeartbeatInterval)
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(envUploadReaperSchedule, "")
	t.Setenv(envUploadSignRequireLock, "true")
	t.Setenv(envUploadStaleLockAge, "30")
	t.Setenv(envAppBaseURL, "https://app.uplora.io/")
	t.Setenv(envMailFrom, "noreply@uplora.io")
	t.Setenv(envResendAPIKey, "re_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Upload.ReaperSchedule)
	assert.True(t, cfg.Upload.SignRequiresLock)
	assert.Equal(t, 30*time.Minute, cfg.Upload.StaleLockAge)
	assert.Equal(t, "https://app.uplora.io", cfg.App.BaseURL)
	assert.True(t, cfg.Mail.Enabled())
}

func TestLoadRejectsSmallPartSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(envUploadPartSize, "1024")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsWeakSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(envJWTSecret, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	_, err := Load()
	assert.Error(t, err)
}

func TestRequireEnvPanics(t *testing.T) {
	t.Setenv(envDBPassword, "")
	assert.Panics(t, func() { requireEnv(envDBPassword) })
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "uplora", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=uplora sslmode=disable", db.DSN())
}
