package utils

import (
	"strings"
	"unicode"
)

// IsValidParticipantID checks the P_<stamp>_<suffix> shape produced by
// GenerateParticipantID.
func IsValidParticipantID(id string) bool {
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != "P" || parts[1] == "" || parts[2] == "" {
		return false
	}
	for _, part := range parts[1:] {
		for _, char := range part {
			if !unicode.IsDigit(char) && !(char >= 'A' && char <= 'Z') {
				return false
			}
		}
	}
	return true
}

// SafeFilename replaces characters that are unsafe in a download filename.
func SafeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}
