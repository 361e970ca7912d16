package mailparse

import (
	"strings"

	"golang.org/x/net/html"
)

// DefaultPreviewLength bounds the preview text attached to message listings.
const DefaultPreviewLength = 160

var skippedPreviewTags = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
}

// ExtractPreview produces a short plain text preview from an HTML body,
// skipping script and style content. Falls back to the raw input when it
// contains no markup.
func ExtractPreview(htmlBody string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultPreviewLength
	}

	tokenizer := html.NewTokenizer(strings.NewReader(htmlBody))
	var builder strings.Builder
	skipDepth := 0

	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}
		switch tokenType {
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedPreviewTags[string(name)] {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedPreviewTags[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			builder.WriteString(string(tokenizer.Text()))
			builder.WriteByte(' ')
		}
		if builder.Len() > maxLength*4 {
			break
		}
	}

	preview := strings.Join(strings.Fields(builder.String()), " ")
	if len(preview) > maxLength {
		cut := preview[:maxLength]
		if idx := strings.LastIndexByte(cut, ' '); idx > maxLength/2 {
			cut = cut[:idx]
		}
		preview = cut + "…"
	}
	return preview
}
