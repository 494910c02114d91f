// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package generators

import (
	"slices"
	"strings"
)

const (
	MaxComponentLength   = 30
	MaxPathDepth         = 3
	MaxContentLength     = 1000
	MaxProjectNameLength = 50
	MinCommitWords       = 2
	MaxCommitWords       = 10
	MaxCommitWordLength  = 20
)

// DefaultReserved are device names that cannot be used as a file name stem on some platforms
var DefaultReserved = []string{
	"CON", "PRN", "AUX", "NUL",
	"COM1", "COM2", "COM3", "COM4", "COM5", "COM6", "COM7", "COM8", "COM9",
	"LPT1", "LPT2", "LPT3", "LPT4", "LPT5", "LPT6", "LPT7", "LPT8", "LPT9",
}

func reservedOrDefault(reserved []string) []string {
	if len(reserved) == 0 {
		return DefaultReserved
	}

	return reserved
}

// IsReserved determines if the stem of component, the part before the first dot, is a reserved name
func IsReserved(component string, reserved ...string) bool {
	stem, _, _ := strings.Cut(component, ".")

	for _, r := range reservedOrDefault(reserved) {
		if strings.EqualFold(stem, r) {
			return true
		}
	}

	return false
}

// ValidPathComponent determines if s is a single safe path component
func ValidPathComponent(s string, reserved ...string) bool {
	if len(s) == 0 || len(s) > MaxComponentLength {
		return false
	}

	if s == "." || s == ".." || s[0] == '.' || s[len(s)-1] == '.' {
		return false
	}

	if !onlyFrom(s, ComponentAlphabet) {
		return false
	}

	return !IsReserved(s, reserved...)
}

// ValidFinalComponent determines if s is a valid file name, either a valid component with a dot or a valid component with a known extension appended
func ValidFinalComponent(s string, reserved ...string) bool {
	if !strings.Contains(s, ".") {
		return false
	}

	if ValidPathComponent(s, reserved...) {
		return true
	}

	idx := strings.LastIndex(s, ".")
	stem, ext := s[:idx], s[idx+1:]

	return slices.Contains(Extensions, ext) && !strings.Contains(stem, ".") && ValidPathComponent(stem, reserved...)
}

// ValidRelativePath determines if components form a safe relative file path
func ValidRelativePath(components []string, reserved ...string) bool {
	if len(components) == 0 || len(components) > MaxPathDepth {
		return false
	}

	last := len(components) - 1
	for _, c := range components[:last] {
		if !ValidPathComponent(c, reserved...) {
			return false
		}
	}

	return ValidFinalComponent(components[last], reserved...)
}

// ValidFileContent determines if s is printable content with a length in [min, max]
func ValidFileContent(s string, min int, max int) bool {
	if len(s) < min || len(s) > max {
		return false
	}

	return onlyFrom(s, ContentAlphabet)
}

// ValidProjectName determines if s is usable as a project directory name
func ValidProjectName(s string) bool {
	if len(s) == 0 || len(s) > MaxProjectNameLength {
		return false
	}

	if !onlyFrom(s, ProjectAlphabet) {
		return false
	}

	return !strings.ContainsAny(s[:1], "-_") && !strings.ContainsAny(s[len(s)-1:], "-_")
}

// ValidCommitMessage determines if s is between 2 and 10 alphanumeric words joined by single spaces
func ValidCommitMessage(s string) bool {
	words := strings.Split(s, " ")
	if len(words) < MinCommitWords || len(words) > MaxCommitWords {
		return false
	}

	for _, w := range words {
		if len(w) == 0 || len(w) > MaxCommitWordLength || !onlyFrom(w, WordAlphabet) {
			return false
		}
	}

	return true
}

// ValidTarget determines if t combines one of paths with one of queries
func ValidTarget(t Target, paths []string, queries []string) bool {
	return slices.Contains(paths, t.Path) && slices.Contains(queries, t.Query)
}
