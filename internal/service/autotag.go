package service

import (
	"regexp"
	"strings"
)

type tagRule struct {
	name    string
	pattern *regexp.Regexp
}

// tagRules maps code constructs to tag names. Rules run against both the
// snippet content and its description; matches are merged with the caller's
// manual tags. Kept as a slice so detection order is deterministic.
var tagRules = []tagRule{
	{"loop", regexp.MustCompile(`(?i)\b(for|while|forEach|do\s+while)\b`)},
	{"api", regexp.MustCompile(`(?i)\b(fetch|axios|XMLHttpRequest|http\.get|api)\b`)},
	{"error handling", regexp.MustCompile(`(?i)\b(try|catch|throw|finally|recover|panic)\b`)},
	{"debugging", regexp.MustCompile(`(?i)\b(console\.log|console\.error|println|printf|debugger)\b`)},
	{"async", regexp.MustCompile(`(?i)\b(async|await|promise|goroutine|chan)\b`)},
	{"dom", regexp.MustCompile(`(?i)\b(document\.|window\.|querySelector|getElementById|addEventListener)`)},
	{"condition", regexp.MustCompile(`(?i)\b(if|else|switch|case)\b`)},
	{"function", regexp.MustCompile(`(?i)\b(func|function|=>|lambda|def)\b`)},
	{"timing", regexp.MustCompile(`(?i)\b(setTimeout|setInterval|time\.Sleep|ticker)\b`)},
	{"oop", regexp.MustCompile(`(?i)\b(class|constructor|extends|super|interface)\b`)},
	{"module", regexp.MustCompile(`(?i)\b(import|export|require|package)\b`)},
	{"sql", regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|JOIN|WHERE)\b`)},
	{"auth", regexp.MustCompile(`(?i)\b(token|jwt|authenticate|authorization|bcrypt)\b`)},
}

// AutoTags combines the caller's manual tags with rule-detected tags for the
// given content and description. The result is deduplicated, manual tags
// first, and never empty strings.
func AutoTags(content, description string, manual []string) []string {
	combined := make([]string, 0, len(manual)+len(tagRules))
	combined = append(combined, manual...)

	for _, rule := range tagRules {
		if rule.pattern.MatchString(content) || (description != "" && rule.pattern.MatchString(description)) {
			combined = append(combined, rule.name)
		}
	}

	return dedupNames(combined)
}

// dedupNames trims, drops empties, and folds duplicates while preserving
// first-seen order.
func dedupNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
