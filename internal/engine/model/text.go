package model

import "github.com/rivo/uniseg"

// graphemeLen returns the number of grapheme clusters in s.
// Text positions count grapheme clusters so a position never splits a
// user-perceived character.
func graphemeLen(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// graphemeByteOffset returns the byte offset of the n-th grapheme boundary.
func graphemeByteOffset(s string, n int) int {
	if n <= 0 {
		return 0
	}
	g := uniseg.NewGraphemes(s)
	count := 0
	for g.Next() {
		count++
		if count == n {
			_, end := g.Positions()
			return end
		}
	}
	return len(s)
}

// sliceGraphemes returns the grapheme range [from, to) of s.
func sliceGraphemes(s string, from, to int) string {
	return s[graphemeByteOffset(s, from):graphemeByteOffset(s, to)]
}
