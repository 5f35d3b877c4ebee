package domain

import "strings"

// ProjectName converts a display name into a valid compose project name:
// lowercase letters, digits, dashes and underscores, starting with a letter
// or digit. Spaces and dots become dashes; everything else is dropped.
//
//	ProjectName("Suna AI")   // "suna-ai"
//	ProjectName("_acme.v2")  // "acme-v2"
func ProjectName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		case r == ' ' || r == '.':
			if b.Len() > 0 {
				b.WriteByte('-')
			}
		}
	}
	return b.String()
}
