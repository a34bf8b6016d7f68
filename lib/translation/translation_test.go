package translation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `msgid "Alerts:"
msgstr "Active alerts:"

msgid "Removed alert %d."
msgstr "Alert %d removed."
`

func TestTranslateFromCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "en", "LC_MESSAGES"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en", "LC_MESSAGES", "default.po"), []byte(catalog), 0o644))

	Configure(dir, " EN ")

	assert.Equal(t, "en", GetLanguage())
	assert.Equal(t, "Active alerts:", Translate("Alerts:"))
	assert.Equal(t, "Alert 4 removed.", Translate("Removed alert %d.", 4))
	assert.Equal(t, "Unknown 5", Translate("Unknown %d", 5))
}

func TestBundledCatalog(t *testing.T) {
	Configure(filepath.Join("..", "..", "locales"), "en")

	help := Translate("Command help message")
	assert.True(t, strings.HasPrefix(help, "*Crypto alert bot*"), help)
	assert.Contains(t, help, "/p <asset> \\[currency\\]")
	assert.Contains(t, help, "/convert <amount> <asset> \\[currency\\]")
	assert.Contains(t, help, "/alert clear")
}
