// Package util provides content hashing and plain-text excerpts for rich-text fields.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const DefaultExcerptLength = 140

var plainText = bluemonday.StrictPolicy()

func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

func ContentHashString(content string) string {
	return ContentHash([]byte(content))
}

// Excerpt strips markup from rich-text editor output and cuts it to at most max runes.
func Excerpt(richText string, max int) string {
	if max <= 0 {
		max = DefaultExcerptLength
	}

	// Block-level tags carry no whitespace of their own.
	spaced := strings.NewReplacer("<", " <", ">", "> ").Replace(richText)
	text := html.UnescapeString(plainText.Sanitize(spaced))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}

// IsBlank reports whether every value is empty or whitespace-only.
func IsBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
