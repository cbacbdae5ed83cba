package textextract

import (
	"bytes"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText honours a UTF-8/UTF-16 byte-order mark and otherwise treats
// the input as UTF-8.
func decodeText(data []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
	if err != nil {
		return "", eris.Wrap(err, "textextract: decode text")
	}
	return string(out), nil
}

var (
	metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([a-zA-Z0-9_\-]+)`)
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	blockTagRe    = regexp.MustCompile(`(?i)</?(p|div|br|li|tr|h[1-6]|table|section|article)[^>]*>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe  = regexp.MustCompile(`\n[ \t]*\n(\s*\n)+`)
)

// extractHTML decodes using the declared charset and strips markup.
func extractHTML(data []byte) (string, error) {
	text, err := decodeHTML(data)
	if err != nil {
		return "", err
	}
	text = scriptStyleRe.ReplaceAllString(text, "")
	text = blockTagRe.ReplaceAllString(text, "\n")
	text = tagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return blankLinesRe.ReplaceAllString(text, "\n\n"), nil
}

func decodeHTML(data []byte) (string, error) {
	m := metaCharsetRe.FindSubmatch(data)
	if m == nil || strings.EqualFold(string(m[1]), "utf-8") {
		return decodeText(data)
	}
	enc, err := htmlindex.Get(string(m[1]))
	if err != nil {
		return decodeText(data)
	}
	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(data)))
	if err != nil {
		return "", eris.Wrapf(err, "textextract: decode %s", m[1])
	}
	return string(out), nil
}

var (
	rtfIgnorableRe = regexp.MustCompile(`\{\\\*[^{}]*\}`)
	rtfHeaderRe    = regexp.MustCompile(`\{\\(fonttbl|colortbl|stylesheet|info)[^{}]*(\{[^{}]*\}[^{}]*)*\}`)
	rtfParRe       = regexp.MustCompile(`\\(par|line)\b ?`)
	rtfTabRe       = regexp.MustCompile(`\\tab\b ?`)
	rtfControlRe   = regexp.MustCompile(`\\[a-zA-Z]+-?\d* ?`)

	rtfProtect = strings.NewReplacer(`\\`, "\x00", `\{`, "\x01", `\}`, "\x02")
	rtfRestore = strings.NewReplacer("{", "", "}", "", "\x00", `\`, "\x01", "{", "\x02", "}")
)

// extractRTF drops control words and groups, keeping paragraph breaks.
func extractRTF(data []byte) (string, error) {
	text, err := decodeText(data)
	if err != nil {
		return "", err
	}
	text = rtfIgnorableRe.ReplaceAllString(text, "")
	text = rtfHeaderRe.ReplaceAllString(text, "")
	text = rtfParRe.ReplaceAllString(text, "\n")
	text = rtfTabRe.ReplaceAllString(text, "\t")
	text = rtfProtect.Replace(text)
	text = rtfControlRe.ReplaceAllString(text, "")
	return rtfRestore.Replace(text), nil
}
