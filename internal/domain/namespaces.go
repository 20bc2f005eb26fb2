package domain

import "strings"

// Reserved namespaces. Everything starting with "_" is owned by the platform
// and rejected on the public write path; user apps may still read them.
const (
	NamespaceSystem     = "_system"      // platform configuration and flags
	NamespaceBuilds     = "_builds"      // per-event build ledger (dedup + audit)
	NamespaceReplyQueue = "_reply_queue" // outbound reply notices awaiting delivery
	NamespaceShowcase   = "_showcase"    // published apps listed on the gallery
	NamespaceRateLimits = "_rate_limits" // per-user daily build counters
	NamespaceRejections = "_rejections"  // audit trail of refused requests
)

// IsSystemNamespace reports whether ns is reserved for the platform.
// Any namespace with a "_" prefix counts, not just the named constants.
func IsSystemNamespace(ns string) bool {
	return strings.HasPrefix(ns, "_")
}
