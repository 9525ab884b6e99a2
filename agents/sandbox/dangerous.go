/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox

import (
	"errors"
	"regexp"
)

var (
	// ErrDangerousCommand is returned for commands on the deny-list.
	ErrDangerousCommand = errors.New("potentially dangerous command")

	// ErrDenied is returned when the Confirmer does not approve a run.
	ErrDenied = errors.New("sandbox execution denied")
)

type denyRule struct {
	name string
	re   *regexp.Regexp
}

var denyList = []denyRule{
	{"rm -rf", regexp.MustCompile(`\brm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r|-r\s+-f|-f\s+-r|--recursive\s+--force|--force\s+--recursive)`)},
	{"mkfs", regexp.MustCompile(`\bmkfs\b`)},
	{"dd", regexp.MustCompile(`(^|[\s;&|(])dd\s`)},
	{"fork bomb", regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`)},
	{"sudo", regexp.MustCompile(`\bsudo\b`)},
	{"su", regexp.MustCompile(`(^|[\s;&|(])su(\s+-)?(\s+root)?\s*($|[;&|])`)},
	{"docker", regexp.MustCompile(`\bdocker\b`)},
	{"shutdown", regexp.MustCompile(`\b(shutdown|reboot|halt|poweroff)\b`)},
	{"chmod 777 /", regexp.MustCompile(`\bchmod\s+-R\s+0?777\s+/(\s|$)`)},
	{"raw device write", regexp.MustCompile(`>\s*/dev/(sd|hd|nvme|disk)`)},
	{"pipe to shell", regexp.MustCompile(`\b(curl|wget)\b[^|]*\|\s*(ba|z)?sh\b`)},
}

// Dangerous reports whether command matches the deny-list, and which rule matched.
func Dangerous(command string) (string, bool) {
	for _, rule := range denyList {
		if rule.re.MatchString(command) {
			return rule.name, true
		}
	}
	return "", false
}
