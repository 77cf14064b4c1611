// Package access decides which agents, calls and call logs a user may see.
//
// Admins see everything. Every other role only sees records whose domain matches
// the domain of their email address; a user without an email domain sees nothing.
package access

import (
	"github.com/dennisdiepolder/monti/insights/internal/types"
)

// Scope returns the agents and calls visible to user.
// The input slices are never modified.
func Scope(user *types.User, agents []types.Agent, calls []types.Call) ([]types.Agent, []types.Call) {
	if user.IsAdmin() {
		return agents, calls
	}
	domain := user.EmailDomain()
	if domain == "" {
		return []types.Agent{}, []types.Call{}
	}
	return filter(agents, domain, func(a types.Agent) string { return a.Domain }),
		filter(calls, domain, func(c types.Call) string { return c.Domain })
}

// ScopeCallLogs applies the same visibility rule to call-log records
func ScopeCallLogs(user *types.User, logs []types.CallLog) []types.CallLog {
	if user.IsAdmin() {
		return logs
	}
	domain := user.EmailDomain()
	if domain == "" {
		return []types.CallLog{}
	}
	return filter(logs, domain, func(l types.CallLog) string { return l.Domain })
}

// Visible reports whether a single record owned by recordDomain is visible to user
func Visible(user *types.User, recordDomain string) bool {
	if user.IsAdmin() {
		return true
	}
	domain := user.EmailDomain()
	return domain != "" && sameDomain(recordDomain, domain)
}

func filter[T any](items []T, domain string, domainOf func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if sameDomain(domainOf(item), domain) {
			out = append(out, item)
		}
	}
	return out
}

// sameDomain compares domains exactly; no case folding or trimming
func sameDomain(recordDomain, userDomain string) bool {
	return recordDomain == userDomain
}
