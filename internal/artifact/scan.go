// Package artifact contains the post-generation safety tooling: the
// validator that scans a generated document for dangerous patterns, and the
// CSP synthesizer that locks down what a published artifact may reach.
//
// The validator reports every match; it deliberately does not decide which
// violations are fatal. The acceptable-violations policy (the injected
// storage client's own fetch use, innerHTML rendering) belongs to the
// pipeline, so the allowlist can change without touching detection.
package artifact

import (
	"regexp"
	"strings"
)

// ScanResult is the validator's verdict on one artifact.
type ScanResult struct {
	Safe       bool
	Violations []string
}

// violationPattern pairs a detection regex with its report label.
type violationPattern struct {
	re   *regexp.Regexp
	name string
}

var dangerousPatterns = []violationPattern{
	// Code execution
	{regexp.MustCompile(`process\.env`), "process.env access"},
	{regexp.MustCompile(`require\s*\(`), "require() call"},
	{regexp.MustCompile(`import\s+.*from\s*['"]`), "ES module import"},
	{regexp.MustCompile(`eval\s*\(`), "eval()"},
	{regexp.MustCompile(`new\s+Function\s*\(`), "Function constructor"},
	{regexp.MustCompile("setTimeout\\s*\\(\\s*['\"`]"), "setTimeout with string (eval equivalent)"},
	{regexp.MustCompile("setInterval\\s*\\(\\s*['\"`]"), "setInterval with string (eval equivalent)"},

	// Network exfiltration
	{regexp.MustCompile(`fetch\s*\(`), "fetch() call (needs allowlist check)"},
	{regexp.MustCompile(`XMLHttpRequest`), "XMLHttpRequest"},
	{regexp.MustCompile(`new\s+WebSocket`), "WebSocket (exfiltration channel)"},
	{regexp.MustCompile(`new\s+EventSource`), "EventSource (exfiltration channel)"},
	{regexp.MustCompile(`navigator\.sendBeacon`), "sendBeacon (exfiltration channel)"},
	{regexp.MustCompile(`importScripts`), "importScripts (worker import)"},
	{regexp.MustCompile(`navigator\.serviceWorker`), "Service Worker registration"},
	{regexp.MustCompile(`SharedWorker|new\s+Worker`), "Web Worker (sandbox escape)"},

	// DOM-based attacks
	{regexp.MustCompile(`document\.cookie`), "cookie access"},
	{regexp.MustCompile(`window\.opener`), "window.opener access"},
	{regexp.MustCompile(`postMessage`), "postMessage"},
	{regexp.MustCompile(`\.innerHTML\s*=`), "innerHTML assignment (XSS risk)"},
	{regexp.MustCompile(`document\.write`), "document.write"},

	// Navigation/redirect
	{regexp.MustCompile(`window\.location\s*=`), "location redirect"},
	{regexp.MustCompile(`document\.location\s*=`), "document.location redirect"},
	{regexp.MustCompile(`top\.location`), "top.location access"},
	{regexp.MustCompile(`parent\.location`), "parent.location access"},

	// HTML-based exfiltration
	{regexp.MustCompile(`(?i)<a\s[^>]*ping\s*=`), "HTML ping attribute (exfiltration)"},
	{regexp.MustCompile(`(?i)<form\s[^>]*action\s*=\s*['"]https?://`), "form action to external URL"},
	{regexp.MustCompile(`(?i)<link\s[^>]*rel\s*=\s*['"]prefetch`), "link prefetch (exfiltration)"},
	{regexp.MustCompile(`(?i)<link\s[^>]*rel\s*=\s*['"]preconnect`), "link preconnect (exfiltration)"},
	{regexp.MustCompile(`(?i)<meta\s[^>]*http-equiv\s*=\s*['"]refresh`), "meta refresh redirect"},

	// CSS-based exfiltration
	{regexp.MustCompile(`(?i)@import\s+['"]?https?://`), "CSS @import external URL"},

	// Image-based exfiltration
	{regexp.MustCompile(`(?s)new\s+Image\s*\(\s*\).*?\.src\s*=`), "Image src exfiltration"},
}

var (
	cssURLRE       = regexp.MustCompile(`(?i)url\s*\(\s*['"]?(https?://[^'")\s]+)`)
	fetchLiteralRE = regexp.MustCompile("fetch\\s*\\(\\s*[`'\"]([^`'\"]*)[`'\"]")
	dynamicSrcRE   = regexp.MustCompile(`\.src\s*=.*(\+|encodeURI|\$\{)`)

	dynamicFetchREs = []*regexp.Regexp{
		regexp.MustCompile(`fetch\s*\(\s*[a-zA-Z_$][a-zA-Z0-9_$]*\s*[,)]`),
		regexp.MustCompile(`fetch\s*\(\s*[a-zA-Z_$][a-zA-Z0-9_$]*\s*\+`),
	}

	clientBlockRE = regexp.MustCompile(`(?s)class\s+ForgeDB\s*\{.*?\n\}`)
)

// Scanner validates generated documents against the violation catalog.
// AllowedHosts are substrings a literal fetch URL (or CSS url()) must
// contain to pass the network allowlist; typically the data-API host.
type Scanner struct {
	AllowedHosts []string
}

// NewScanner builds a Scanner allowing network access to the given hosts.
func NewScanner(allowedHosts ...string) *Scanner {
	return &Scanner{AllowedHosts: allowedHosts}
}

func (s *Scanner) allowed(url string) bool {
	for _, h := range s.AllowedHosts {
		if h != "" && strings.Contains(url, h) {
			return true
		}
	}
	return false
}

// Scan checks html against the full catalog and returns the ordered list of
// violations found. Safe is true only when the list is empty.
func (s *Scanner) Scan(html string) ScanResult {
	var violations []string

	for _, p := range dangerousPatterns {
		if p.re.MatchString(html) {
			violations = append(violations, p.name)
		}
	}

	// CSS url() with a foreign target.
	for _, m := range cssURLRE.FindAllStringSubmatch(html, -1) {
		if !s.allowed(m[1]) {
			violations = append(violations, "CSS url() to external domain")
			break
		}
	}

	// Literal fetch targets must hit the data-API origin. Template-literal
	// placeholders are deferred to the dynamic check below.
	for _, m := range fetchLiteralRE.FindAllStringSubmatch(html, -1) {
		url := m[1]
		if strings.HasPrefix(url, "$") {
			continue
		}
		if !s.allowed(url) {
			violations = append(violations, "unauthorized fetch target: "+url)
		}
	}

	// Dynamic fetch URLs (identifiers, concatenation). The injected storage
	// client block is excised first: it is trusted pre-audited code and its
	// fetch calls are legitimately dynamic.
	nonClient := clientBlockRE.ReplaceAllString(html, "")
	for _, re := range dynamicFetchREs {
		if re.MatchString(nonClient) {
			violations = append(violations, "dynamic fetch URL (potential exfiltration)")
		}
	}

	if dynamicSrcRE.MatchString(html) {
		violations = append(violations, "dynamic src assignment (potential exfiltration)")
	}

	return ScanResult{Safe: len(violations) == 0, Violations: violations}
}
