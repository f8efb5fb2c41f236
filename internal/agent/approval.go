package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/reactorhq/agent/pkg/models"
)

// ApprovalDecision is the outcome of consulting the HITL component for one
// tool call.
type ApprovalDecision string

const (
	ApprovalAllowed ApprovalDecision = "allowed"
	ApprovalDenied  ApprovalDecision = "denied"
)

// ApprovalRequest is what the dispatcher hands the Confirmer when a
// permission class requires confirmation (spec.md §4.1 step 4).
type ApprovalRequest struct {
	ExecutionID string
	ToolName    string
	Args        []byte
	Reason      string
	CreatedAt   time.Time
}

// Confirmer is the external UI collaborator the HITL component awaits on.
// Confirm blocks until the user decides or ctx is cancelled; a cancelled ctx
// must be treated as a denial by the caller.
type Confirmer interface {
	Confirm(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error)
}

// ConfirmerFunc adapts a function to a Confirmer.
type ConfirmerFunc func(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error) {
	return f(ctx, req)
}

// ApprovalPolicy lets an operator allowlist or denylist tools by name or
// pattern before a call ever reaches the Confirmer, so routine writes (a
// safe formatter, a known-safe shell command) don't interrupt the loop.
// Patterns support exact match, "prefix*", "*suffix", and "*" (match all).
// External-bridge tools are named "mcp:<server>:<tool>", so "mcp:*" or
// "mcp:<server>:*" selects them.
type ApprovalPolicy struct {
	Allowlist []string
	Denylist  []string
	// AskFallback: when true and no Confirmer is set, unmatched calls are
	// allowed; when false, they are denied. Defaults to false (fail closed).
	AskFallback bool
}

// DefaultApprovalPolicy denies by default and asks the Confirmer for
// anything not explicitly allowlisted.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{}
}

// ApprovalChecker mediates HITL confirmation for write/shell/network tool
// calls. It is shared across the main loop and any sub-agent using the same
// registry; Check is safe for concurrent use.
type ApprovalChecker struct {
	mu        sync.RWMutex
	policy    ApprovalPolicy
	confirmer Confirmer
}

// NewApprovalChecker builds a checker with the given policy and an optional
// Confirmer (nil means every non-allowlisted, confirmation-requiring call
// falls back to policy.AskFallback).
func NewApprovalChecker(policy ApprovalPolicy, confirmer Confirmer) *ApprovalChecker {
	return &ApprovalChecker{policy: policy, confirmer: confirmer}
}

// SetConfirmer (re)binds the external UI collaborator.
func (c *ApprovalChecker) SetConfirmer(confirmer Confirmer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmer = confirmer
}

// Check evaluates one tool call against the policy and, if needed, the
// Confirmer. reason explains the decision for logging/events.
func (c *ApprovalChecker) Check(ctx context.Context, call models.ToolCall) (ApprovalDecision, string) {
	c.mu.RLock()
	policy := c.policy
	confirmer := c.confirmer
	c.mu.RUnlock()

	if matchesApprovalPattern(policy.Denylist, call.ToolName) {
		return ApprovalDenied, "tool in denylist"
	}
	if matchesApprovalPattern(policy.Allowlist, call.ToolName) {
		return ApprovalAllowed, "tool in allowlist"
	}

	if confirmer == nil {
		if policy.AskFallback {
			return ApprovalAllowed, "no confirmer configured, ask_fallback allows"
		}
		return ApprovalDenied, "no confirmer configured"
	}

	decision, err := confirmer.Confirm(ctx, ApprovalRequest{
		ExecutionID: call.ExecutionID,
		ToolName:    call.ToolName,
		Args:        call.Args,
		Reason:      "requires confirmation: " + call.ToolName,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return ApprovalDenied, "confirmation failed: " + err.Error()
	}
	if decision != ApprovalAllowed {
		return ApprovalDenied, "cancelled by user"
	}
	return ApprovalAllowed, "confirmed by user"
}

// matchesApprovalPattern reports whether name matches any entry in patterns.
func matchesApprovalPattern(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if pattern == "*" || pattern == name {
			return true
		}
		if strings.HasSuffix(pattern, ".*") && strings.HasPrefix(name, strings.TrimSuffix(pattern, "*")) {
			return true
		}
		if strings.HasSuffix(pattern, "*") {
			if strings.HasPrefix(name, strings.TrimSuffix(pattern, "*")) {
				return true
			}
			continue
		}
		if strings.HasPrefix(pattern, "*") && strings.HasSuffix(name, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}
	return false
}
