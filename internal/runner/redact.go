package runner

import (
	"regexp"
	"strings"
)

// secretPatterns match known API key and token formats.
var secretPatterns = []*regexp.Regexp{
	// Groq keys: gsk_...
	regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`),
	// OpenAI and OpenRouter keys: sk-..., sk-proj-..., sk-or-v1-...
	regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{20,}`),
	// Cerebras keys: csk-...
	regexp.MustCompile(`csk-[a-zA-Z0-9]{20,}`),
	// Google API keys
	regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.]{20,}`),
}

const redactPlaceholder = "[REDACTED]"

// Redact removes credential-looking values from text, plus any literal
// secrets given. The second value is the number of replacements.
func Redact(text string, secrets ...string) (string, int) {
	text, count := RedactLiteral(text, secrets...)
	for _, re := range secretPatterns {
		if matches := re.FindAllStringIndex(text, -1); len(matches) > 0 {
			count += len(matches)
			text = re.ReplaceAllString(text, redactPlaceholder)
		}
	}
	return text, count
}

// RedactLiteral replaces only the given secrets. Values shorter than eight
// characters are left alone.
func RedactLiteral(text string, secrets ...string) (string, int) {
	count := 0
	for _, s := range secrets {
		if len(s) < 8 {
			continue
		}
		if n := strings.Count(text, s); n > 0 {
			count += n
			text = strings.ReplaceAll(text, s, redactPlaceholder)
		}
	}
	return text, count
}
