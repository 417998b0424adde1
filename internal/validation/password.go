// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// bcrypt ignores input beyond 72 bytes.
const maxPasswordBytes = 72

// PasswordPolicy defines requirements for console user passwords.
type PasswordPolicy struct {
	MinLength int

	// MaxConsecutiveRepeats is the longest allowed run of one character (0 = disabled).
	MaxConsecutiveRepeats int

	ForbidCommonPasswords bool

	// ForbidEmailSimilarity rejects passwords containing the email local part.
	ForbidEmailSimilarity bool
}

// DefaultPasswordPolicy returns the policy applied at registration.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:             8,
		MaxConsecutiveRepeats: 4,
		ForbidCommonPasswords: true,
		ForbidEmailSimilarity: true,
	}
}

// Check returns an error describing every rule password breaks. email may
// be empty, which skips the similarity rule.
func (p PasswordPolicy) Check(password, email string) error {
	var problems []string

	if n := utf8.RuneCountInString(password); n < p.MinLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters (got %d)", p.MinLength, n))
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	if p.MaxConsecutiveRepeats > 0 && maxConsecutiveRepeats(password) > p.MaxConsecutiveRepeats {
		problems = append(problems,
			fmt.Sprintf("password cannot have more than %d consecutive repeated characters", p.MaxConsecutiveRepeats))
	}
	if p.ForbidCommonPasswords && isCommonPassword(password) {
		problems = append(problems, "password is too common and easily guessable")
	}
	if p.ForbidEmailSimilarity && isSimilarToEmail(password, email) {
		problems = append(problems, "password is too similar to email")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

func maxConsecutiveRepeats(password string) int {
	longest, run := 0, 0
	var last rune
	for i, r := range password {
		if i > 0 && r == last {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		last = r
	}
	return longest
}

var commonPasswords = map[string]struct{}{
	"123456": {}, "password": {}, "123456789": {}, "12345678": {}, "1234567890": {},
	"qwerty": {}, "abc123": {}, "password1": {}, "password123": {}, "admin123": {},
	"letmein": {}, "welcome": {}, "monkey": {}, "dragon": {}, "master": {},
	"princess": {}, "qwerty123": {}, "passw0rd": {}, "starwars": {}, "iloveyou": {},
	"sunshine": {}, "trustno1": {}, "superman": {}, "football": {}, "baseball": {},
	"changeme": {}, "letmein123": {}, "password!": {}, "p@ssw0rd": {}, "p@ssword": {},
	"pa55word": {}, "passw0rd!": {}, "password1!": {}, "welcome1": {}, "welcome123": {},
	"qwertyuiop": {}, "asdfghjkl": {}, "1qaz2wsx": {}, "abcd1234": {}, "1q2w3e4r": {},
	"987654321": {}, "password1234": {}, "123123123": {}, "11111111": {}, "00000000": {},
	"testing123": {}, "administrator": {}, "password@123": {}, "welcome@123": {},
	"security": {}, "security1": {}, "safety123": {}, "camera123": {}, "safex123": {},
}

func isCommonPassword(password string) bool {
	_, ok := commonPasswords[strings.ToLower(password)]
	return ok
}

func isSimilarToEmail(password, email string) bool {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	if len(local) < 3 {
		return false
	}
	return strings.Contains(strings.ToLower(password), local)
}
