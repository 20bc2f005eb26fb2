package pipeline

import "regexp"

// Coolness heuristic: a rough interestingness score in [10, 99] used to rank
// the showcase. Games and interactive visuals score high, utilities mid,
// and larger documents get a small bump for effort.
var (
	coolGameRE    = regexp.MustCompile(`(?i)game|tetris|snake|pong|breakout|chess|puzzle`)
	coolVisualRE  = regexp.MustCompile(`(?i)dashboard|visualiz|animation|3d|canvas|chart`)
	coolUtilityRE = regexp.MustCompile(`(?i)calculator|timer|converter|tracker|editor`)
	coolSocialRE  = regexp.MustCompile(`(?i)social|chat|collab|multi|shared`)
)

// RateCoolness scores a build from its request text and generated size.
func RateCoolness(request string, htmlSize int) int {
	score := 50
	if coolGameRE.MatchString(request) {
		score += 25
	}
	if coolVisualRE.MatchString(request) {
		score += 20
	}
	if coolUtilityRE.MatchString(request) {
		score += 15
	}
	if coolSocialRE.MatchString(request) {
		score += 20
	}
	if htmlSize > 15000 {
		score += 10
	}
	if htmlSize > 25000 {
		score += 10
	}
	if score > 99 {
		score = 99
	}
	if score < 10 {
		score = 10
	}
	return score
}
