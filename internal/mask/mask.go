// Package mask redacts credentials and IP addresses before values are logged or displayed.
package mask

import (
	"fmt"
	"net/http"
	"net/netip"
	"regexp"
	"strings"
)

const (
	secretPrefixLen = 4
	shortSecretLen  = 6
	ellipsis        = "..."
	unknownIP       = "unknown"
)

// sensitiveKeys are compared after lowercasing and normalizing '_' to '-'.
var sensitiveKeys = map[string]bool{
	"authorization": true,
	"new-api-user":  true,
	"api-key":       true,
	"apikey":        true,
	"x-api-key":     true,
	"access-token":  true,
	"token":         true,
	"key":           true,
	"secret":        true,
	"password":      true,
	"cookie":        true,
	"set-cookie":    true,
	"llm-api-key":   true,
}

var ipKeys = map[string]bool{
	"ip":        true,
	"client-ip": true,
	"remote-ip": true,
	"x-real-ip": true,
}

// Redactor rewrites sensitive fragments of free text.
type Redactor interface {
	Redact(input string) string
	Name() string
}

// PatternRedactor rewrites every match of a pattern.
type PatternRedactor struct {
	pattern *regexp.Regexp
	replace func(match string) string
	name    string
}

// NewPatternRedactor creates a pattern-based redactor.
func NewPatternRedactor(name string, pattern *regexp.Regexp, replace func(string) string) *PatternRedactor {
	return &PatternRedactor{name: name, pattern: pattern, replace: replace}
}

// Redact replaces every match.
func (r *PatternRedactor) Redact(input string) string {
	return r.pattern.ReplaceAllStringFunc(input, r.replace)
}

// Name returns the redactor name.
func (r *PatternRedactor) Name() string {
	return r.name
}

var (
	bearerPattern   = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-_.~+/=]+`)
	apiKeyPattern   = regexp.MustCompile(`\bsk-[A-Za-z0-9\-_]{8,}`)
	keyValuePattern = regexp.MustCompile(
		`(?i)\b(new[-_]api[-_]user|authorization|api[-_]?key|access[-_]?token|password|secret)(["']?\s*[:=]\s*["']?)([^\s"',;}&]+)`)
	ipv4Pattern = regexp.MustCompile(`\b(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})\b`)
	ipv6Pattern = regexp.MustCompile(`[0-9A-Fa-f]*:[0-9A-Fa-f:]*:[0-9A-Fa-f:.]*`)
)

var defaultRedactors = []Redactor{
	NewPatternRedactor("bearer", bearerPattern, func(m string) string {
		fields := strings.Fields(m)
		if len(fields) < 2 {
			return m
		}
		return "Bearer " + Secret(fields[1])
	}),
	NewPatternRedactor("api-key", apiKeyPattern, Secret),
	NewPatternRedactor("key-value", keyValuePattern, func(m string) string {
		sub := keyValuePattern.FindStringSubmatch(m)
		if len(sub) < 4 || strings.EqualFold(sub[3], "bearer") || strings.HasSuffix(sub[3], ellipsis) {
			return m
		}
		return sub[1] + sub[2] + Secret(sub[3])
	}),
	NewPatternRedactor("ipv4", ipv4Pattern, func(m string) string {
		addr, err := netip.ParseAddr(m)
		if err != nil || !addr.Is4() {
			return dottedQuad(m)
		}
		return IP(m)
	}),
	NewPatternRedactor("ipv6", ipv6Pattern, func(m string) string {
		addr, err := netip.ParseAddr(m)
		if err != nil || !addr.Is6() || addr.Is4In6() {
			return m
		}
		return IP(m)
	}),
}

// Secret keeps a short prefix of v. Values too short to leave anything hidden
// become asterisks.
func Secret(v string) string {
	if v == "" {
		return ""
	}
	runes := []rune(v)
	if len(runes) <= shortSecretLen {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:secretPrefixLen]) + ellipsis
}

// Authorization masks an Authorization header value, keeping the scheme.
func Authorization(v string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(v), " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return "Bearer " + Secret(strings.TrimSpace(token))
	}
	return Secret(v)
}

// IP masks an address: IPv4 keeps the first two octets, IPv6 the first two groups.
// Input that is not an address is treated as a secret.
func IP(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return unknownIP
	}

	addr, err := netip.ParseAddr(v)
	if err != nil {
		if ipv4Pattern.FindString(v) == v {
			return dottedQuad(v)
		}
		return Secret(v)
	}
	addr = addr.Unmap()

	if addr.Is4() {
		b := addr.As4()
		return fmt.Sprintf("%d.%d.x.x", b[0], b[1])
	}

	b := addr.As16()
	return fmt.Sprintf("%x:%x:x:x", uint16(b[0])<<8|uint16(b[1]), uint16(b[2])<<8|uint16(b[3]))
}

// dottedQuad masks four dotted numbers that netip rejects, such as
// zero-padded octets.
func dottedQuad(v string) string {
	parts := strings.SplitN(v, ".", 4)
	if len(parts) != 4 {
		return Secret(v)
	}
	return parts[0] + "." + parts[1] + ".x.x"
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "_", "-")
}

// IsSensitiveKey reports whether values stored under key are always masked.
func IsSensitiveKey(key string) bool {
	return sensitiveKeys[normalizeKey(key)]
}

// Value masks v according to the key it is stored under.
func Value(key, v string) string {
	k := normalizeKey(key)
	switch {
	case k == "authorization":
		return Authorization(v)
	case sensitiveKeys[k]:
		return Secret(v)
	case ipKeys[k]:
		return IP(v)
	}
	if _, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil {
		return IP(v)
	}
	return Line(v)
}

// Header returns a masked copy of h.
func Header(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vals := range h {
		masked := make([]string, len(vals))
		for i, v := range vals {
			masked[i] = Value(k, v)
		}
		out[k] = masked
	}
	return out
}

// Map returns a masked copy of m.
func Map(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Value(k, v)
	}
	return out
}

// Fields returns a masked deep copy of a decoded JSON object.
func Fields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = field(k, v)
	}
	return out
}

func field(key string, v any) any {
	switch val := v.(type) {
	case string:
		return Value(key, val)
	case map[string]any:
		return Fields(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = field(key, item)
		}
		return items
	default:
		if IsSensitiveKey(key) && v != nil {
			return Secret(fmt.Sprint(v))
		}
		return v
	}
}

// Line redacts bearer tokens, API keys, credential assignments and IP
// addresses inside free text.
func Line(s string) string {
	if s == "" {
		return s
	}
	for _, r := range defaultRedactors {
		s = r.Redact(s)
	}
	return s
}
