package usecase

import (
	"fmt"
	"time"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/metrics"
)

// RoleGate admits a request only if its claim carries an allowed role.
type RoleGate struct {
	metrics *metrics.Metrics
}

// NewRoleGate creates a RoleGate. metrics may be nil.
func NewRoleGate(m *metrics.Metrics) *RoleGate {
	return &RoleGate{metrics: m}
}

// Authorize returns ErrUnauthenticated when no usable claim is present and
// ErrForbidden when the role is not in the requirement.
func (g *RoleGate) Authorize(claim *domain.Claim, req domain.RoleRequirement) error {
	if claim == nil || claim.UserID == "" || !claim.Role.IsValid() {
		g.deny("unauthenticated")
		return domain.ErrUnauthenticated
	}

	if !req.Allows(claim.Role) {
		g.deny("forbidden")
		return fmt.Errorf("%w: role %s not in %s", domain.ErrForbidden, claim.Role, req)
	}

	return nil
}

func (g *RoleGate) deny(reason string) {
	if g.metrics != nil {
		g.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}

// FiscalLockGate rejects non-exempt writes to dates outside the current fiscal year.
type FiscalLockGate struct {
	policy     domain.FiscalPolicy
	exemptRole domain.Role
	now        func() time.Time
	metrics    *metrics.Metrics
}

// FiscalLockOption customizes a FiscalLockGate.
type FiscalLockOption func(*FiscalLockGate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) FiscalLockOption {
	return func(g *FiscalLockGate) { g.now = now }
}

// WithFiscalMetrics records rejections.
func WithFiscalMetrics(m *metrics.Metrics) FiscalLockOption {
	return func(g *FiscalLockGate) { g.metrics = m }
}

// NewFiscalLockGate creates a gate where admins are exempt.
func NewFiscalLockGate(policy domain.FiscalPolicy, opts ...FiscalLockOption) *FiscalLockGate {
	g := &FiscalLockGate{
		policy:     policy,
		exemptRole: domain.RoleAdmin,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check passes when role is exempt or effectiveDate falls in the current fiscal year.
func (g *FiscalLockGate) Check(role domain.Role, effectiveDate time.Time) error {
	if role == g.exemptRole {
		return nil
	}

	if g.policy.FiscalYear(effectiveDate) != g.policy.FiscalYear(g.now()) {
		if g.metrics != nil {
			g.metrics.FiscalLockRejections.Inc()
		}
		return domain.ErrFiscalLocked
	}

	return nil
}

// Now returns the gate's current time.
func (g *FiscalLockGate) Now() time.Time {
	return g.now()
}
