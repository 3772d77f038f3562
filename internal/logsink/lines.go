// SPDX-License-Identifier: MPL-2.0

package logsink

import (
	"regexp"
)

var (
	lineSeparators = regexp.MustCompile(`[\n\r\f]+`)
	colorEscapes   = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	// tsc prints "3:04:05 PM - " in front of watch messages.
	typeCheckTime = regexp.MustCompile(`^\d?\d:\d\d:\d\d (?:AM|PM) (?:- )?`)
	// gulp-style "[15:04:05] " prefixes.
	bracketTime = regexp.MustCompile(`^\[\d\d:\d\d:\d\d\] `)
)

// SplitLines splits text on any run of line separators and drops empty
// lines.
func SplitLines(text string) []string {
	var out []string
	for _, line := range lineSeparators.Split(text, -1) {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// StripColor removes SGR escape sequences.
func StripColor(text string) string {
	return colorEscapes.ReplaceAllString(text, "")
}

// stripTimestamp removes the timestamp tools print themselves so that every
// line carries only ours.
func stripTimestamp(source, line string) string {
	switch source {
	case SourceTypeCheck:
		return typeCheckTime.ReplaceAllString(line, "")
	default:
		return bracketTime.ReplaceAllString(line, "")
	}
}
