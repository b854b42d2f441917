package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// extractHTML keeps the visible text of a page, skipping script and style
// bodies. Markup structure is flattened; the chunker only needs prose.
func extractHTML(raw []byte) (string, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(raw))
	var builder strings.Builder
	var skipUntil string
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("parse html: %w", err)
			}
			return strings.Join(strings.Fields(builder.String()), " "), nil
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipUntil = tag
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == skipUntil {
				skipUntil = ""
			}
		case html.TextToken:
			if skipUntil == "" {
				builder.Write(tokenizer.Text())
				builder.WriteByte(' ')
			}
		}
	}
}
