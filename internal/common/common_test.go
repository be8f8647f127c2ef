package common

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "jpn+eng", cfg.OCR.Lang)
	assert.Equal(t, 3, cfg.Form.RetryCount)
	assert.Equal(t, "attendance.db", cfg.Database.DSN)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "attendance.toml", `
[database]
dsn = "postgres://u:p@localhost/att"

[ocr]
lang = "jpn"
dpi = 200

[form]
base_url = "https://example.test"
headless = false

[calendar]
year = 2025
month = 3
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/att", cfg.Database.DSN)
	assert.Equal(t, "jpn", cfg.OCR.Lang)
	assert.Equal(t, 200, cfg.OCR.DPI)
	assert.False(t, cfg.Form.Headless)
	assert.Equal(t, 2, cfg.OCR.Workers, "untouched keys keep defaults")
	assert.Equal(t, 2025, cfg.Calendar.Year)
}

func TestLoadConfigRejectsUnknownTOMLKeys(t *testing.T) {
	path := writeFile(t, "bad.toml", "[ocr]\nlanguage = \"jpn\"\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Equal(t, "CONFIG_ERROR", ErrorCode(err))
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "attendance.yaml", "form:\n  retry_count: 5\n  retry_interval: 2s\nlogging:\n  format: json\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Form.RetryCount)
	assert.Equal(t, 2*time.Second, cfg.Form.RetryInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("OCR_LANG", "eng")
	t.Setenv("FORM_RETRY_COUNT", "7")
	t.Setenv("FORM_HEADLESS", "false")
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "eng", cfg.OCR.Lang)
	assert.Equal(t, 7, cfg.Form.RetryCount)
	assert.False(t, cfg.Form.Headless)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	cfg = DefaultConfig()
	cfg.Archive.Endpoint = "localhost:9000"
	assert.Error(t, cfg.Validate())
}

func TestCalendarClock(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }

	assert.Equal(t, now(), CalendarConfig{}.Clock(now)())
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), CalendarConfig{Year: 2025, Month: 2}.Clock(now)())
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), CalendarConfig{Month: 4}.Clock(now)())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(WrapError(ErrNotFound, "job")))
	assert.Equal(t, http.StatusUnsupportedMediaType, HTTPStatus(NewAppError("UNSUPPORTED", "x.doc", ErrUnsupported)))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrExternalTool))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestFieldValidator(t *testing.T) {
	v := NewFieldValidator().
		Field("id", "not-a-uuid", Required, UUID).
		Field("limit", 500, IntRange(1, 200)).
		Field("status", "DONE", OneOf("QUEUED", "FAILED"))
	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 3)
	assert.ErrorIs(t, v.Err(), ErrInvalidInput)

	assert.NoError(t, NewFieldValidator().Field("status", "", OneOf("QUEUED")).Err())
}
