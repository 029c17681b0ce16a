package payloads

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreDefaults(t *testing.T) {
	store := NewStore("", "", zerolog.Nop())

	require.Len(t, store.SQLi(), 5)
	assert.Equal(t, "Login Bypass", store.SQLi()[0].Name)
	assert.Equal(t, "' OR '1'='1", store.SQLi()[0].Payload)

	require.Len(t, store.XSS(), 21)
	assert.Equal(t, "<script>alert(1)</script>", store.XSS()[0])
}

func TestNewStoreFromFiles(t *testing.T) {
	dir := t.TempDir()

	sqliPath := filepath.Join(dir, "sqli.json")
	sqliContent := `[{"name": "Custom", "payload": "' OR 'a'='a", "expected_result": "ok"}]`
	require.NoError(t, os.WriteFile(sqliPath, []byte(sqliContent), 0644))

	xssPath := filepath.Join(dir, "xss.txt")
	xssContent := "<script>custom()</script>\n\n<svg onload=custom()>\n"
	require.NoError(t, os.WriteFile(xssPath, []byte(xssContent), 0644))

	store := NewStore(sqliPath, xssPath, zerolog.Nop())

	require.Len(t, store.SQLi(), 1)
	assert.Equal(t, "Custom", store.SQLi()[0].Name)
	assert.Equal(t, "ok", store.SQLi()[0].ExpectedResult)

	assert.Equal(t, []string{"<script>custom()</script>", "<svg onload=custom()>"}, store.XSS())
}

func TestNewStoreMissingFilesFallBack(t *testing.T) {
	store := NewStore("/nonexistent/sqli.json", "/nonexistent/xss.txt", zerolog.Nop())

	assert.Len(t, store.SQLi(), 5)
	assert.Len(t, store.XSS(), 21)
}

func TestNewStoreMalformedSQLiFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := NewStore(path, "", zerolog.Nop())
	assert.Len(t, store.SQLi(), 5)
}
