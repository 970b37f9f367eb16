package riskclass

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ObfuscationFinding reports a character in a command that can make
// the displayed text differ from what the shell executes. Findings
// with Blocking set force the command to high risk; lookalike letters
// alone raise it to at least medium.
type ObfuscationFinding struct {
	Kind        string `json:"kind"`
	Offset      int    `json:"offset"`
	Codepoint   string `json:"codepoint"`
	Description string `json:"description"`
	Blocking    bool   `json:"blocking"`
}

// scanObfuscation walks the raw command looking for invisible
// characters, direction overrides, tag characters, raw control bytes,
// and Latin-lookalike letters from other scripts.
func scanObfuscation(command string) []ObfuscationFinding {
	var findings []ObfuscationFinding
	for i, r := range command {
		if r == utf8.RuneError {
			findings = append(findings, ObfuscationFinding{
				Kind:        "invalid-utf8",
				Offset:      i,
				Codepoint:   "U+FFFD",
				Description: "Invalid UTF-8 byte sequence",
				Blocking:    true,
			})
			continue
		}
		if f, ok := classifyRune(r, i); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

func classifyRune(r rune, offset int) (ObfuscationFinding, bool) {
	cp := fmt.Sprintf("U+%04X", r)

	if isInvisible(r) {
		return ObfuscationFinding{
			Kind:        "invisible",
			Offset:      offset,
			Codepoint:   cp,
			Description: fmt.Sprintf("Invisible character %s hides content from display", cp),
			Blocking:    true,
		}, true
	}
	if isBidiControl(r) {
		return ObfuscationFinding{
			Kind:        "bidi",
			Offset:      offset,
			Codepoint:   cp,
			Description: fmt.Sprintf("Direction override %s makes displayed text differ from executed text", cp),
			Blocking:    true,
		}, true
	}
	if r >= 0xE0001 && r <= 0xE007F {
		return ObfuscationFinding{
			Kind:        "tag-char",
			Offset:      offset,
			Codepoint:   cp,
			Description: fmt.Sprintf("Unicode tag character %s can smuggle hidden instructions", cp),
			Blocking:    true,
		}, true
	}
	if isRawControl(r) {
		return ObfuscationFinding{
			Kind:        "control",
			Offset:      offset,
			Codepoint:   cp,
			Description: fmt.Sprintf("Control character %s should not appear in a command", cp),
			Blocking:    true,
		}, true
	}
	if latin, ok := confusableLatin(r); ok {
		return ObfuscationFinding{
			Kind:        "lookalike",
			Offset:      offset,
			Codepoint:   cp,
			Description: fmt.Sprintf("Character %s looks like Latin '%c' but is from another script", cp, latin),
		}, true
	}
	return ObfuscationFinding{}, false
}

func isInvisible(r rune) bool {
	switch r {
	case '\u200B', // ZERO WIDTH SPACE
		'\u200C', // ZERO WIDTH NON-JOINER
		'\u200D', // ZERO WIDTH JOINER
		'\u200E', // LEFT-TO-RIGHT MARK
		'\u200F', // RIGHT-TO-LEFT MARK
		'\u2060', // WORD JOINER
		'\u180E', // MONGOLIAN VOWEL SEPARATOR
		'\uFEFF': // ZERO WIDTH NO-BREAK SPACE (BOM)
		return true
	}
	return false
}

func isBidiControl(r rune) bool {
	switch r {
	case '\u202A', // LEFT-TO-RIGHT EMBEDDING
		'\u202B', // RIGHT-TO-LEFT EMBEDDING
		'\u202C', // POP DIRECTIONAL FORMATTING
		'\u202D', // LEFT-TO-RIGHT OVERRIDE
		'\u202E', // RIGHT-TO-LEFT OVERRIDE
		'\u2066', // LEFT-TO-RIGHT ISOLATE
		'\u2067', // RIGHT-TO-LEFT ISOLATE
		'\u2068', // FIRST STRONG ISOLATE
		'\u2069': // POP DIRECTIONAL ISOLATE
		return true
	}
	return false
}

// Tab, newline and carriage return are legitimate in shell commands;
// every other C0/C1 control byte and DEL is not.
func isRawControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	if r <= 0x1F || r == 0x7F {
		return true
	}
	return r >= 0x80 && r <= 0x9F
}

// confusableLatin maps Cyrillic and Greek letters that render like
// Latin letters to the Latin letter they imitate. A command like
// "сurl" (Cyrillic es) slips past string matching while looking
// identical on screen.
func confusableLatin(r rune) (rune, bool) {
	if !unicode.Is(unicode.Cyrillic, r) && !unicode.Is(unicode.Greek, r) {
		return 0, false
	}
	latin, ok := latinLookalikes[r]
	return latin, ok
}

var latinLookalikes = map[rune]rune{
	// Cyrillic
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C',
	'е': 'e', 'Е': 'E', 'Н': 'H', 'і': 'i', 'І': 'I',
	'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O', 'р': 'p',
	'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
	// Greek
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'ο': 'o',
	'Ρ': 'P', 'Τ': 'T', 'Υ': 'Y', 'Χ': 'X', 'Ζ': 'Z',
}
