package introspect

import (
	"strings"
	"unicode"

	"github.com/stoewer/go-strcase"
)

// Humanize turns a field or model identifier into a display label:
// "logo_url" becomes "Logo url", "division_id" becomes "Division",
// "DraftPick" becomes "Draft pick" and "HTTPServer" becomes "Http server".
func Humanize(name string) string {
	snake := strcase.SnakeCase(strings.TrimSpace(name))
	snake = strings.TrimSuffix(snake, "_id")
	snake = strings.Trim(snake, "_")
	if snake == "" {
		return ""
	}
	label := strings.Join(strings.Fields(strings.ReplaceAll(snake, "_", " ")), " ")
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
