// Package fuzzy provides fuzzy string matching for the slash menu.
//
// A query matches a text when every query rune appears in the text in
// order. Matches are scored by:
//   - consecutive matched runes
//   - matches at word boundaries (after spaces, punctuation, camelCase)
//   - a match at the start of the text, and an exact prefix
//   - short texts and small gaps between matched runes
//
// Results for repeated queries are served from an LRU cache. The Matcher
// is safe for concurrent use.
package fuzzy
