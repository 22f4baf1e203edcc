package loop

import (
	"strings"
	"unicode/utf8"

	"github.com/wasilibs/go-re2"

	"github.com/aatumaykin/microbot/internal/config"
)

// Tier is a routing class that picks the LLM budget for a request.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierDeep     Tier = "deep"
)

// Budget is the token and temperature budget of a tier.
// MaxTokens 0 leaves the provider default in place.
type Budget struct {
	MaxTokens   int
	Temperature float64
}

var (
	timePattern     = re2.MustCompile(`(?i)(what time|current time|^time$|hora)`)
	listPattern     = re2.MustCompile(`(?i)(list schedules|show schedules|list reminders)`)
	removePattern   = re2.MustCompile(`(?i)(?:remove|delete) schedule\s+(\S+)`)
	weatherPattern  = re2.MustCompile(`(?i)weather (?:in|for) (.+)$`)
	delegationWords = []string{
		"weather", "time", "status", "schedule", "remind", "list", "run", "command",
		"file", "download", "search", "scrape", "network", "system", "restart",
	}
)

// Route is a tool call chosen without asking the model.
type Route struct {
	Tool string
	Args map[string]any
}

// QuickRoute matches cheap rule-based intents.
func QuickRoute(text string) (Route, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return Route{}, false
	}

	switch {
	case timePattern.MatchString(t):
		return Route{Tool: "get_current_time", Args: map[string]any{}}, true
	case listPattern.MatchString(t):
		return Route{Tool: "list_schedules", Args: map[string]any{}}, true
	}

	if m := removePattern.FindStringSubmatch(t); m != nil {
		return Route{Tool: "remove_schedule", Args: map[string]any{"id": m[1]}}, true
	}
	if m := weatherPattern.FindStringSubmatch(t); m != nil {
		if loc := strings.TrimSpace(m[1]); loc != "" {
			return Route{Tool: "get_weather", Args: map[string]any{"location": loc}}, true
		}
	}
	return Route{}, false
}

// ClassifyTier picks the routing tier for text.
func ClassifyTier(cfg config.RoutingConfig, text string) Tier {
	if !cfg.Enabled {
		return TierBalanced
	}

	low := strings.ToLower(text)
	if containsAny(low, cfg.DeepKeywords) {
		return TierDeep
	}
	if cfg.LongMessageChars > 0 && utf8.RuneCountInString(text) > cfg.LongMessageChars {
		return TierDeep
	}
	if containsAny(low, cfg.FastKeywords) {
		return TierFast
	}
	return TierBalanced
}

// BudgetFor returns the tier budget.
func BudgetFor(cfg config.RoutingConfig, tier Tier) Budget {
	var b Budget
	switch tier {
	case TierFast:
		b = Budget{MaxTokens: cfg.FastTokens, Temperature: cfg.FastTemp}
	case TierDeep:
		b = Budget{MaxTokens: cfg.DeepTokens, Temperature: cfg.DeepTemp}
	default:
		b = Budget{MaxTokens: cfg.BalancedTokens, Temperature: cfg.BalancedTemp}
	}
	if b.MaxTokens < 0 {
		b.MaxTokens = 0
	}
	return b
}

// ShouldDelegate reports whether a deep request goes through the
// Planner/Researcher/Executor chain instead of the tool loop.
func ShouldDelegate(cfg config.DelegationConfig, text string, tier Tier) bool {
	if !cfg.Enabled || tier != TierDeep {
		return false
	}
	low := strings.ToLower(text)
	if containsAny(low, delegationWords) {
		return false
	}
	return containsAny(low, cfg.Keywords)
}

func containsAny(low string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(low, k) {
			return true
		}
	}
	return false
}
