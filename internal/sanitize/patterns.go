package sanitize

import "regexp"

// Injection patterns, grouped by technique. These cover instruction
// overrides, role manipulation, prompt extraction, delimiter smuggling, and
// encoding tricks aimed at the generation prompt.
var injectionPatterns = []*regexp.Regexp{
	// instruction override
	regexp.MustCompile(`(?i)ignore\s+(?:all\s+|any\s+)?(?:previous|prior|above|earlier)\s+(?:instructions?|prompts?|rules?|directions?)`),
	regexp.MustCompile(`(?i)disregard\s+(?:all\s+|any\s+)?(?:previous|prior|above|the)\s+(?:instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(?:everything|all|your)\s+(?:above|instructions?|rules?|training)?`),
	regexp.MustCompile(`(?i)new\s+instructions?\s*:`),
	regexp.MustCompile(`(?i)override\s+(?:your|the|all)\s+(?:instructions?|rules?|system|safety)`),

	// role manipulation
	regexp.MustCompile(`(?i)you\s+are\s+(?:now|no\s+longer)\s`),
	regexp.MustCompile(`(?i)pretend\s+(?:to\s+be|you\s+are|you're)`),
	regexp.MustCompile(`(?i)act\s+as\s+(?:if\s+you|though\s+you|an?\s+unrestricted)`),
	regexp.MustCompile(`(?i)roleplay\s+as`),
	regexp.MustCompile(`(?i)\bjailbreak`),
	regexp.MustCompile(`(?i)developer\s+mode`),

	// system prompt extraction
	regexp.MustCompile(`(?i)(?:show|reveal|print|repeat|output|tell)\s+(?:me\s+)?(?:your|the)\s+(?:system\s+)?prompt`),
	regexp.MustCompile(`(?i)what\s+(?:is|are|were)\s+your\s+(?:instructions?|system\s+prompt|rules?)`),
	regexp.MustCompile(`(?i)repeat\s+the\s+(?:words?|text)\s+above`),

	// delimiter injection
	regexp.MustCompile("(?i)```\\s*(?:system|assistant)"),
	regexp.MustCompile(`<\|im_start\|>|<\|im_end\|>|<\|endoftext\|>`),
	regexp.MustCompile(`(?i)\[/?(?:INST|SYS)\]|<<+\s*SYS\s*>>+`),
	regexp.MustCompile(`(?i)^#+\s*(?:system|instructions?)\s*:?\s*$`),

	// encoding attacks
	regexp.MustCompile(`(?i)base64\s*(?:decode|encoded?)`),
	regexp.MustCompile(`(?:\\u[0-9a-fA-F]{4}){3,}`),
	regexp.MustCompile(`(?:&#x?[0-9a-fA-F]+;){3,}`),
}

// Content-policy patterns tagged with the violated category. These are not
// prompt injection; they are lexical matches on disallowed subject matter.
var contentPatterns = []struct {
	re       *regexp.Regexp
	category string
}{
	{regexp.MustCompile(`(?i)porn|nsfw|nude|xxx|sex(?:ual|ting)?`), CategoryNSFW},
	{regexp.MustCompile(`(?i)\bweapon|bomb|explosive`), CategoryViolence},
	{regexp.MustCompile(`(?i)\bdrug\s*(?:deal|trad|sell|market)`), CategoryIllegal},
	{regexp.MustCompile(`(?i)\bhack(?:er|ing)\b.*(?:tool|kit|suite)`), CategoryHacking},
	{regexp.MustCompile(`(?i)\bddos|exploit\s*kit|vulnerability\s*scanner`), CategoryHacking},
	{regexp.MustCompile(`(?i)fake\s*(?:login|bank|paypal|amazon|google)`), CategoryPhishing},
	{regexp.MustCompile(`(?i)credit\s*card\s*(?:skimmer|stealer|harvest)`), CategoryFraud},
	{regexp.MustCompile(`(?i)\bphishing\b`), CategoryPhishing},
	{regexp.MustCompile(`(?i)\bransomware\b`), CategoryMalware},
	{regexp.MustCompile(`(?i)\bkeylogger\b`), CategoryMalware},
	{regexp.MustCompile(`(?i)\bcrypto\s*miner\b`), CategoryMalware},
	{regexp.MustCompile(`(?i)\bmalware\b`), CategoryMalware},
	{regexp.MustCompile(`(?i)steal|exfiltrate|scrape\s+user`), CategoryDataTheft},
}

// Probes for the pipeline's own environment and secrets. Matches here are
// treated as injection regardless of surrounding text.
var pipelinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)process\.env`),
	regexp.MustCompile(`(?i)require\s*\(\s*['"](?:fs|child_process|os|net|http|https|crypto|path|stream|cluster|dgram|dns|domain|readline|repl|tls|tty|v8|vm|worker_threads|perf_hooks)`),
	regexp.MustCompile(`(?i)import\s+.*from\s*['"](?:fs|child_process|os|net)`),
	regexp.MustCompile(`(?i)\.env\b`),
	regexp.MustCompile(`(?i)credentials`),
	regexp.MustCompile(`(?i)api[_\s]*key`),
	regexp.MustCompile(`(?i)secret[_\s]*key`),
	regexp.MustCompile(`(?i)access[_\s]*key`),
	regexp.MustCompile(`(?i)\bpassword\b`),
}

var (
	htmlTagRE = regexp.MustCompile(`<[^>]*>`)
	// Everything outside the allowed request alphabet is dropped.
	disallowedRE = regexp.MustCompile("[^\\w\\s.,!?'\"():;\\-+=#@/&%$*~`\\[\\]{}|\\\\]")
)
