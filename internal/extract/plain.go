package extract

import (
	"bytes"
	"unicode/utf8"
)

// validUTF8 returns content unchanged when it is valid UTF-8, otherwise a copy with
// invalid sequences replaced by the replacement character.
func validUTF8(content []byte) []byte {
	if utf8.Valid(content) {
		return content
	}
	return bytes.ToValidUTF8(content, []byte("\uFFFD"))
}
