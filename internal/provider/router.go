package provider

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Profile describes a registered provider's selection-relevant traits,
// used only by SuggestPrimary — the registry's own SetDefaultProvider
// never consults this, since spec.md §4.8 requires an explicit name.
// Grounded on internal/router.Router's Model/scoring-rule shape,
// generalized from "pick a chat model" to "pick a primary provider".
type Profile struct {
	Name          string
	SupportsTools bool
	CostTier      int // 0=free/local, 1=cheap, 2=moderate, 3=expensive
	Quality       int // 1-10
	Speed         int // 1-10
}

// Decision records why SuggestPrimary picked a candidate, mirroring
// internal/router.Decision's audit shape.
type Decision struct {
	Timestamp      time.Time      `json:"timestamp"`
	NeedsTools     bool           `json:"needs_tools"`
	RulesEvaluated []string       `json:"rules_evaluated"`
	Scores         map[string]int `json:"scores,omitempty"`
	Selected       string         `json:"selected"`
	Reasoning      string         `json:"reasoning"`
}

// Router scores healthy provider candidates to suggest a primary when
// the configuration leaves primary_provider unset.
type Router struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{profiles: map[string]Profile{}}
}

// providerTypeDefaults seeds a Profile's selection-relevant traits from
// a provider_type string. The relative Speed/Quality/CostTier values
// are a qualitative cloud-vs-local spread for the provider types this
// registry ships factories for, with the local Ollama type at CostTier 0.
var providerTypeDefaults = map[string]Profile{
	"ollama":    {SupportsTools: true, CostTier: 0, Quality: 5, Speed: 8},
	"anthropic": {SupportsTools: true, CostTier: 2, Quality: 9, Speed: 6},
	"openai":    {SupportsTools: true, CostTier: 2, Quality: 8, Speed: 6},
	"genai":     {SupportsTools: true, CostTier: 1, Quality: 8, Speed: 7},
}

// profileForProviderType builds the Profile RegisterProvider registers
// for a newly created provider, keyed by its configured provider_type.
// An unrecognized type gets a neutral mid-range profile rather than
// being excluded from selection entirely.
func profileForProviderType(name, providerType string) Profile {
	p, ok := providerTypeDefaults[providerType]
	if !ok {
		p = Profile{CostTier: 1, Quality: 5, Speed: 5}
	}
	p.Name = name
	return p
}

// SetProfile registers or replaces a candidate's selection profile.
func (r *Router) SetProfile(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
}

// SuggestPrimary scores every profiled candidate healthy enough to run
// (healthy map, keyed by name) and returns the best one, or ("", nil, false)
// if none qualify.
func (r *Router) SuggestPrimary(needsTools bool, healthy map[string]bool) (string, *Decision, bool) {
	r.mu.RLock()
	candidates := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		if healthy != nil && !healthy[p.Name] {
			continue
		}
		candidates = append(candidates, p)
	}
	r.mu.RUnlock()

	decision := &Decision{Timestamp: time.Now(), NeedsTools: needsTools}

	var eligible []Profile
	for _, p := range candidates {
		decision.RulesEvaluated = append(decision.RulesEvaluated, "check_"+p.Name)
		if needsTools && !p.SupportsTools {
			continue
		}
		eligible = append(eligible, p)
	}

	if len(eligible) == 0 {
		decision.Reasoning = "no eligible provider candidates"
		return "", decision, false
	}

	scores := make(map[string]int)
	for _, p := range eligible {
		score := p.Quality*3 + p.Speed
		if p.CostTier == 0 {
			score += 10 // prefer free/local, all else equal
		} else {
			score -= p.CostTier * 5
		}
		scores[p.Name] = score
	}
	decision.Scores = scores

	var best Profile
	bestScore := -1 << 30
	for _, p := range eligible {
		s := scores[p.Name]
		if s > bestScore || (s == bestScore && p.CostTier < best.CostTier) {
			best = p
			bestScore = s
		}
	}

	var reasoning strings.Builder
	reasoning.WriteString("selected " + best.Name + " (score=" + strconv.Itoa(bestScore) + ")")
	decision.Selected = best.Name
	decision.Reasoning = reasoning.String()
	return best.Name, decision, true
}
