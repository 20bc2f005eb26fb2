package artifact

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	headOpenRE = regexp.MustCompile(`(?i)<head[^>]*>`)
	htmlOpenRE = regexp.MustCompile(`(?i)<html[^>]*>`)
)

// Synthesizer hardens a validated document before publication: a
// Content-Security-Policy meta tag that confines network access to the data
// API, and the ForgeDB storage client the generated app talks to.
type Synthesizer struct {
	// APIBaseURL is the public base of the data API, e.g.
	// "https://data.forgebay.dev/api".
	APIBaseURL string
}

// NewSynthesizer builds a Synthesizer for the given data-API base URL.
func NewSynthesizer(apiBaseURL string) *Synthesizer {
	return &Synthesizer{APIBaseURL: strings.TrimRight(apiBaseURL, "/")}
}

// Origin returns the scheme://host portion of APIBaseURL, used as the
// connect-src target and as the fetch allowlist host.
func (s *Synthesizer) Origin() string {
	u, err := url.Parse(s.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s.APIBaseURL
	}
	return u.Scheme + "://" + u.Host
}

// MetaTag renders the CSP meta tag. Inline script and style stay enabled
// because generated apps are single self-contained files; everything else
// is shut off, and connect-src admits only the data API.
func (s *Synthesizer) MetaTag() string {
	directives := strings.Join([]string{
		"default-src 'self' 'unsafe-inline'",
		"script-src 'self' 'unsafe-inline'",
		"connect-src " + s.Origin(),
		"object-src 'none'",
		"form-action 'none'",
		"base-uri 'none'",
	}, "; ")
	return fmt.Sprintf(`<meta http-equiv="Content-Security-Policy" content="%s">`, directives)
}

// ClientScript renders the ForgeDB storage client bound to the app's own
// namespace. The class name must stay in sync with the validator's trusted
// block excision.
func (s *Synthesizer) ClientScript(namespace string) string {
	return fmt.Sprintf(`<script>
class ForgeDB {
  constructor() {
    this.base = %q;
    this.ns = %q;
  }
  async get(key) {
    const res = await fetch(this.base + '/data/' + this.ns + '/' + encodeURIComponent(key));
    if (res.status === 404) return null;
    if (!res.ok) throw new Error('get failed: ' + res.status);
    return await res.json();
  }
  async set(key, value) {
    const res = await fetch(this.base + '/data/' + this.ns + '/' + encodeURIComponent(key), {
      method: 'PUT',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ value: value })
    });
    if (!res.ok) throw new Error('set failed: ' + res.status);
  }
  async delete(key) {
    const res = await fetch(this.base + '/data/' + this.ns + '/' + encodeURIComponent(key), { method: 'DELETE' });
    if (!res.ok) throw new Error('delete failed: ' + res.status);
  }
  async list() {
    const res = await fetch(this.base + '/data/' + this.ns);
    if (!res.ok) throw new Error('list failed: ' + res.status);
    const body = await res.json();
    return body.entries;
  }
}
const db = new ForgeDB();
</script>`, s.APIBaseURL, namespace)
}

// Inject places the CSP meta tag and the storage client immediately after
// the document's head-open tag. When no head exists one is synthesized
// after the html-open tag, or prepended for fragment documents.
func (s *Synthesizer) Inject(html, namespace string) string {
	block := s.MetaTag() + "\n" + s.ClientScript(namespace)

	if loc := headOpenRE.FindStringIndex(html); loc != nil {
		return html[:loc[1]] + "\n" + block + html[loc[1]:]
	}
	if loc := htmlOpenRE.FindStringIndex(html); loc != nil {
		head := "\n<head>\n" + block + "\n</head>"
		return html[:loc[1]] + head + html[loc[1]:]
	}
	return "<head>\n" + block + "\n</head>\n" + html
}
