package auth

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PASSWORD POLICY
//
// Four rules, all checked so the user sees every problem at once:
//   - at least MinPasswordLength characters
//   - not too similar to the user's own attributes (username, names, email)
//   - not one of the well-known common passwords
//   - not entirely numeric

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// maxSimilarity is the similarity ratio at which a password counts as
// "too similar" to a user attribute.
const maxSimilarity = 0.7

// UserAttribute is a named piece of user data the password must not resemble.
type UserAttribute struct {
	Name  string // human-readable, e.g. "username" or "email address"
	Value string
}

// commonPasswords is a short list of the passwords that top every leak.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password12": {}, "password123": {},
	"12345678": {}, "123456789": {}, "1234567890": {}, "87654321": {},
	"qwerty123": {}, "qwertyuiop": {}, "1q2w3e4r": {}, "1qaz2wsx": {},
	"iloveyou": {}, "sunshine": {}, "princess": {}, "football": {},
	"baseball": {}, "welcome1": {}, "trustno1": {}, "superman": {},
	"starwars": {}, "whatever": {}, "abc12345": {}, "letmein1": {},
	"passw0rd": {}, "zaq12wsx": {}, "michael1": {}, "dragon12": {},
	"asdfghjkl": {}, "11111111": {}, "00000000": {}, "admin123": {},
	"changeme": {}, "computer": {}, "internet": {}, "qwerty12": {},
}

// CheckPassword returns every policy violation of password, in a stable
// order. An empty result means the password is acceptable.
//
// A password over the bcrypt limit is reported on its own; the other rules
// would only spend time on input that can never be stored.
func CheckPassword(password string, attrs ...UserAttribute) []string {
	if len(password) > maxPasswordBytes {
		return []string{fmt.Sprintf(
			"This password is too long. It must contain at most %d bytes.", maxPasswordBytes)}
	}

	var problems []string

	if n := len([]rune(password)); n < MinPasswordLength {
		problems = append(problems, fmt.Sprintf(
			"This password is too short. It must contain at least %d characters.", MinPasswordLength))
	}

	for _, attr := range attrs {
		if tooSimilar(password, attr.Value) {
			problems = append(problems, fmt.Sprintf("The password is too similar to the %s.", attr.Name))
			break
		}
	}

	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		problems = append(problems, "This password is too common.")
	}

	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}

	return problems
}

// tooSimilar compares the password with the whole attribute value and with
// each of its word parts ("jane.doe@example.com" → jane, doe, example, com).
func tooSimilar(password, value string) bool {
	if value == "" || password == "" {
		return false
	}
	password = strings.ToLower(password)
	value = strings.ToLower(value)

	parts := strings.FieldsFunc(value, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	parts = append(parts, value)

	for _, part := range parts {
		if !canReach(password, part) {
			continue
		}
		if similarity(password, part) >= maxSimilarity {
			return true
		}
	}
	return false
}

// canReach reports whether a and b are close enough in length for
// similarity to reach maxSimilarity. The common subsequence is at most as long
// as the shorter string, which caps the ratio at 2*min/(len(a)+len(b)).
func canReach(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return true
	}
	return 2*float64(min(la, lb))/float64(la+lb) >= maxSimilarity
}

// similarity returns 2*M/T where M is the length of the longest common
// subsequence of a and b and T is their combined length. 1.0 means equal.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return 2 * float64(prev[len(rb)]) / float64(total)
}
