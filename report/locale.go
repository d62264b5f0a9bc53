package report

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type markerSet struct {
	holiday string
	leave   string
}

var markers = map[string]markerSet{
	"en": {holiday: "HOLIDAY", leave: "LEAVE"},
	"es": {holiday: "FESTIVO", leave: "VACACIONES"},
}

var monthNames = map[string][12]string{
	"en": {"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december"},
	"es": {"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
}

// baseLanguage reduces "es-ES" or "es_ES" to "es".
func baseLanguage(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return locale
}

// MonthLabel is the upper-cased month name in the locale's language,
// e.g. (March, "es") -> "MARZO". Unknown locales use English.
func MonthLabel(month time.Month, locale string) string {
	lang := baseLanguage(locale)
	names, ok := monthNames[lang]
	if !ok {
		lang = "en"
		names = monthNames[lang]
	}
	if month < time.January || month > time.December {
		return ""
	}
	return cases.Upper(language.Make(lang)).String(names[month-1])
}

// Filename is the produced document name: {MONTH}_report.{ext}.
func Filename(month time.Month, locale, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "pdf"
	}
	return MonthLabel(month, locale) + "_report." + ext
}
