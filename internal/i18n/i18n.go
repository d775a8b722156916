package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/reportbot/resources"
)

const dictPath = "i18n/translations.yml"

var state = struct {
	once         sync.Once
	translations map[string]map[string]string
}{}

func load() {
	state.translations = map[string]map[string]string{}
	content, err := resources.FS.ReadFile(dictPath)
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	if err := yaml.Unmarshal(content, &state.translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
	}
}

// Get returns the translation of key for lang, falling back to the key itself.
func Get(key, lang string) string {
	if lang == "" || strings.EqualFold(lang, "en") {
		return key
	}
	state.once.Do(load)
	if res, ok := state.translations[key][strings.ToUpper(lang)]; ok && res != "" {
		return res
	}
	log.Tracef("no %s translation for key %q", lang, key)
	return key
}

// Languages lists the locales that have at least one translation, plus EN.
func Languages() []string {
	state.once.Do(load)
	seen := map[string]struct{}{"EN": {}}
	for _, byLang := range state.translations {
		for lang := range byLang {
			seen[lang] = struct{}{}
		}
	}
	res := make([]string, 0, len(seen))
	for lang := range seen {
		res = append(res, lang)
	}
	return res
}
