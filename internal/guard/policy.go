package guard

import (
	"fmt"
	"strings"

	"github.com/noah-isme/homework-board/internal/models"
	"github.com/noah-isme/homework-board/pkg/config"
)

// Policy decides whether a signed-in principal may act as a teacher.
type Policy interface {
	Authorize(p *models.Principal) bool
	Name() string
}

// AnyPrincipal authorizes every non-nil principal.
type AnyPrincipal struct{}

func (AnyPrincipal) Authorize(p *models.Principal) bool { return p != nil }

func (AnyPrincipal) Name() string { return config.AuthPolicyAny }

// DesignatedEmail authorizes only the principal with the configured email.
type DesignatedEmail struct {
	Email string
}

func (d DesignatedEmail) Authorize(p *models.Principal) bool {
	if p == nil || d.Email == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(p.Email), d.Email)
}

func (DesignatedEmail) Name() string { return config.AuthPolicyDesignated }

// NewPolicy builds the policy selected by AUTH_POLICY.
func NewPolicy(mode, teacherEmail string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", config.AuthPolicyAny:
		return AnyPrincipal{}, nil
	case config.AuthPolicyDesignated:
		email := strings.TrimSpace(teacherEmail)
		if email == "" {
			return nil, fmt.Errorf("auth policy %q requires TEACHER_EMAIL", config.AuthPolicyDesignated)
		}
		return DesignatedEmail{Email: email}, nil
	default:
		return nil, fmt.Errorf("unknown auth policy %q", mode)
	}
}
