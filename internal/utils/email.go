package utils

import (
	"regexp"
	"strings"
)

func UniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))

	for _, email := range emails {
		if _, exists := seen[email]; !exists {
			seen[email] = struct{}{}
			unique = append(unique, email)
		}
	}

	return unique
}

var subjectPrefixRe = regexp.MustCompile(`(?i)^((re|fwd|fw|aw|wg|ant|sv)(\[\d+\])?\s*:\s*)+`)

// NormalizeSubject strips reply/forward prefixes, including the German
// AW/WG variants the mailboxes we sync produce.
func NormalizeSubject(subject string) string {
	normalized := subjectPrefixRe.ReplaceAllString(subject, "")
	return strings.TrimSpace(normalized)
}

func ExtractDomainFromEmail(email string) string {
	if email == "" {
		return ""
	}

	email = strings.TrimSpace(email)

	// Handle angle brackets ("Name <email@domain.com>")
	if strings.Contains(email, "<") && strings.Contains(email, ">") {
		startIdx := strings.LastIndex(email, "<") + 1
		endIdx := strings.LastIndex(email, ">")
		if startIdx > 0 && endIdx > startIdx {
			email = email[startIdx:endIdx]
		}
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(parts[1]))
}

func IsStringInSlice(s string, slice []string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}
