package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homework-board/internal/models"
)

func teacher(email string) *models.Principal {
	return &models.Principal{ID: "u-1", Email: email, Provider: models.ProviderGoogle}
}

func TestMachineLoadingHidesChildren(t *testing.T) {
	m := NewMachine(AnyPrincipal{})
	assert.Equal(t, StateLoading, m.State())
	assert.Equal(t, ShowLoading, m.Evaluate("/teacher/"))
	assert.Equal(t, ShowLoading, m.Evaluate(DefaultLoginPath))
}

func TestMachineSignedOutOnLoginRenders(t *testing.T) {
	m := NewMachine(AnyPrincipal{})
	m.Observe(nil)
	assert.Equal(t, Render, m.Evaluate("/teacher/login"))
	assert.Equal(t, Render, m.Evaluate("/teacher/login/"))
}

func TestMachineSignedOutElsewhereRedirectsOnce(t *testing.T) {
	m := NewMachine(AnyPrincipal{})
	m.Observe(nil)

	d := m.Evaluate("/teacher/")
	require.Equal(t, RedirectLogin, d)
	assert.Equal(t, DefaultLoginPath, m.Target(d))

	// Repeated notifications for the same state do not re-emit.
	m.Observe(nil)
	assert.Equal(t, Stay, m.Evaluate("/teacher/"))
	assert.Equal(t, Stay, m.Evaluate("/teacher"))
}

func TestMachineSignedInOnLoginRedirectsOnce(t *testing.T) {
	m := NewMachine(AnyPrincipal{})
	m.Observe(teacher("a@school.test"))

	d := m.Evaluate("/teacher/login")
	require.Equal(t, RedirectLanding, d)
	assert.Equal(t, DefaultLandingPath, m.Target(d))

	m.Observe(teacher("a@school.test"))
	assert.Equal(t, Stay, m.Evaluate("/teacher/login"))
	assert.Equal(t, Render, m.Evaluate("/teacher/"))
}

func TestMachineStateChangeRearmsRedirect(t *testing.T) {
	m := NewMachine(AnyPrincipal{})
	m.Observe(nil)
	require.Equal(t, RedirectLogin, m.Evaluate("/teacher/edit/1"))

	m.Observe(teacher("a@school.test"))
	assert.Equal(t, Render, m.Evaluate("/teacher/edit/1"))

	m.Observe(nil)
	assert.Equal(t, RedirectLogin, m.Evaluate("/teacher/edit/1"))
}

func TestDesignatedPolicyRejectsOtherPrincipals(t *testing.T) {
	policy, err := NewPolicy("designated", "Teacher@School.test")
	require.NoError(t, err)

	m := NewMachine(policy)
	assert.Equal(t, StateSignedOut, m.Observe(teacher("someone@else.test")))
	assert.Nil(t, m.Principal())
	assert.Equal(t, RedirectLogin, m.Evaluate("/teacher/"))

	assert.Equal(t, StateSignedIn, m.Observe(teacher("teacher@school.test")))
	assert.Equal(t, Render, m.Evaluate("/teacher/"))
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("", "")
	require.NoError(t, err)
	assert.Equal(t, "any", p.Name())
	assert.True(t, p.Authorize(teacher("x@y.z")))
	assert.False(t, p.Authorize(nil))

	_, err = NewPolicy("designated", " ")
	assert.Error(t, err)

	_, err = NewPolicy("everyone", "")
	assert.Error(t, err)
}

func TestWithPaths(t *testing.T) {
	m := NewMachine(nil, WithPaths("/login", "/home"))
	m.Observe(teacher("a@b.c"))
	d := m.Evaluate("/login?next=1")
	assert.Equal(t, RedirectLanding, d)
	assert.Equal(t, "/home", m.Target(d))
}
