package ratelimit

import "time"

// LimitConfig caps requests to Max within Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps each scope to the limits that apply to it. Every limit of every
// resolved scope must pass for a request to be allowed.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy returns inbound limits for the feedback API.
// Analysis endpoints trigger outbound AI calls and are the tightest.
func DefaultPolicy() *Policy {
	return NewPolicyBuilder().
		AddLimit(ScopeGlobal, 300, time.Minute).
		AddLimit(ScopeRead, 120, time.Minute).
		AddLimit(ScopeWrite, 30, time.Minute).
		AddLimit(ScopeWrite, 500, time.Hour).
		AddLimit(ScopeAnalysis, 10, time.Minute).
		AddLimit(ScopeAnalysis, 100, time.Hour).
		Build()
}

// PolicyBuilder assembles a Policy one limit at a time.
type PolicyBuilder struct {
	limits map[Scope][]LimitConfig
}

// NewPolicyBuilder starts an empty policy.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{limits: make(map[Scope][]LimitConfig)}
}

// AddLimit appends a limit to scope. Limits are checked in the order added.
func (b *PolicyBuilder) AddLimit(scope Scope, maxRequests int64, window time.Duration) *PolicyBuilder {
	b.limits[scope] = append(b.limits[scope], LimitConfig{Window: window, Max: maxRequests})

	return b
}

// Build returns the policy. The builder can keep adding limits afterwards
// without affecting policies already built.
func (b *PolicyBuilder) Build() *Policy {
	limits := make(map[Scope][]LimitConfig, len(b.limits))
	for scope, l := range b.limits {
		limits[scope] = append([]LimitConfig(nil), l...)
	}

	return &Policy{Limits: limits}
}
