// Package glob implements the shell-style pattern matcher the CLI uses
// to select tensors by name. It is a direct, idiomatic port of
// gguf-tools.c's strmatch: '*' matches any run, '?' matches one byte,
// and '[...]' matches a character class (with '^' negation, 'a-z'
// ranges and '\' escapes).
package glob

// Match reports whether s matches pattern. If nocase is true, letters
// are compared case-insensitively.
func Match(pattern, s string, nocase bool) bool {
	return match([]byte(pattern), []byte(s), nocase)
}

func match(pattern, s []byte, nocase bool) bool {
	for len(pattern) > 0 && len(s) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 1 && pattern[1] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for len(s) > 0 {
				if match(pattern[1:], s, nocase) {
					return true
				}
				s = s[1:]
			}
			return false

		case '?':
			s = s[1:]

		case '[':
			pattern = pattern[1:]
			negate := len(pattern) > 0 && pattern[0] == '^'
			if negate {
				pattern = pattern[1:]
			}
			matched := false
			for {
				if len(pattern) >= 2 && pattern[0] == '\\' {
					pattern = pattern[1:]
					if pattern[0] == s[0] {
						matched = true
					}
				} else if len(pattern) > 0 && pattern[0] == ']' {
					break
				} else if len(pattern) == 0 {
					break
				} else if len(pattern) >= 3 && pattern[1] == '-' {
					start, end, c := rune(pattern[0]), rune(pattern[2]), rune(s[0])
					if start > end {
						start, end = end, start
					}
					if nocase {
						start, end, c = lower(start), lower(end), lower(c)
					}
					pattern = pattern[2:]
					if c >= start && c <= end {
						matched = true
					}
				} else {
					if nocase {
						if lower(rune(pattern[0])) == lower(rune(s[0])) {
							matched = true
						}
					} else if pattern[0] == s[0] {
						matched = true
					}
				}
				pattern = pattern[1:]
				if len(pattern) == 0 {
					break
				}
			}
			if negate {
				matched = !matched
			}
			if !matched {
				return false
			}
			s = s[1:]

		default:
			if nocase {
				if lower(rune(pattern[0])) != lower(rune(s[0])) {
					return false
				}
			} else if pattern[0] != s[0] {
				return false
			}
			s = s[1:]
		}

		pattern = pattern[1:]
		if len(s) == 0 {
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			break
		}
	}
	return len(pattern) == 0 && len(s) == 0
}

func lower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
