package manager

import "strings"

// Encode converts a string to the byte form the manager expects. Invalid
// UTF-8 sequences are replaced with U+FFFD so the manager only ever sees
// well-formed UTF-8.
func Encode(s string) []byte {
	return []byte(strings.ToValidUTF8(s, "�"))
}

// Decode converts manager bytes to a string. It never fails; invalid
// sequences are replaced with U+FFFD.
func Decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
