package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
	log "github.com/sirupsen/logrus"
)

const domain = "default"

// Configure loads <dir>/<lang>/LC_MESSAGES/default.po. Message ids that are
// missing from the catalog are returned untranslated.
func Configure(dir, lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = "en"
	}
	gotext.Configure(dir, lang, domain)
	log.Debugf("Loaded %s translations from %s", lang, dir)
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
