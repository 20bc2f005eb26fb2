package sanitize

import (
	"fmt"
	"math/rand"
)

// Per-category rejection reply templates. Invalid inputs get no reply at
// all; bot noise and truncated posts are just ignored.
var rejectionReplies = map[string][]string{
	CategoryInjection: {
		"@%s Nice try! That looked like a prompt injection. Build something fun instead!",
		"@%s Injection attempt detected. ForgeBay only builds apps, not exploits!",
		"@%s Nope! Our screening caught that one. Try a real build request!",
	},
	CategoryNSFW: {
		"@%s ForgeBay keeps it clean! Try something creative instead.",
	},
	CategoryPhishing: {
		"@%s We don't build phishing pages. How about a legitimate app instead?",
	},
	CategoryMalware: {
		"@%s Malware requests aren't our thing. Build something positive!",
	},
	CategoryHacking: {
		"@%s We build apps, not attack tools. Try something constructive!",
	},
	CategoryFraud: {
		"@%s That's not what we're here for. Build something legit!",
	},
	CategoryDataTheft: {
		"@%s Data theft? Hard pass. Try building something people will love!",
	},
	CategoryViolence: {
		"@%s Let's keep it peaceful. How about a game or a tool instead?",
	},
	CategoryIllegal: {
		"@%s Can't help with that. Try a fun app instead!",
	},
	CategoryInvalid: nil, // no reply for invalid/empty inputs
}

// ReplyFor returns a short rejection reply for the given user and category,
// or "" when the category warrants no reply. Unknown categories (including
// the classifier's tos_* labels) fall back to the injection set.
func ReplyFor(username, category string) string {
	options, ok := rejectionReplies[category]
	if !ok {
		options = rejectionReplies[CategoryInjection]
	}
	if len(options) == 0 {
		return ""
	}
	return fmt.Sprintf(options[rand.Intn(len(options))], username)
}
