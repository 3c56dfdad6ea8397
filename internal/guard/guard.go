// Package guard gates the teacher views behind a signed-in principal.
package guard

import (
	"strings"
	"sync"

	"github.com/noah-isme/homework-board/internal/models"
)

// Default view paths.
const (
	DefaultLoginPath   = "/teacher/login"
	DefaultLandingPath = "/teacher/"
)

// State is the resolved authentication state the guard has observed.
type State int

const (
	StateLoading State = iota
	StateSignedOut
	StateSignedIn
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "signed_out"
	case StateSignedIn:
		return "signed_in"
	default:
		return "loading"
	}
}

// Decision is what the guarded view should do for the current path.
type Decision int

const (
	// ShowLoading means the auth state is unresolved; children stay hidden.
	ShowLoading Decision = iota
	// Render shows the requested view.
	Render
	// RedirectLogin navigates to the sign-in view.
	RedirectLogin
	// RedirectLanding navigates to the teacher landing view.
	RedirectLanding
	// Stay means the redirect for this state and path was already emitted.
	Stay
)

func (d Decision) String() string {
	switch d {
	case ShowLoading:
		return "show_loading"
	case Render:
		return "render"
	case RedirectLogin:
		return "redirect_login"
	case RedirectLanding:
		return "redirect_landing"
	case Stay:
		return "stay"
	default:
		return "unknown"
	}
}

// Option customises a Machine.
type Option func(*Machine)

// WithPaths overrides the login and landing paths.
func WithPaths(login, landing string) Option {
	return func(m *Machine) {
		if login != "" {
			m.loginPath = login
		}
		if landing != "" {
			m.landingPath = landing
		}
	}
}

// Machine tracks the auth state for one guarded subtree. It starts in
// StateLoading and is safe for concurrent use.
type Machine struct {
	mu           sync.Mutex
	policy       Policy
	loginPath    string
	landingPath  string
	state        State
	principal    *models.Principal
	lastRedirect string
}

// NewMachine constructs a guard using the given authorization policy.
func NewMachine(policy Policy, opts ...Option) *Machine {
	if policy == nil {
		policy = AnyPrincipal{}
	}
	m := &Machine{
		policy:      policy,
		loginPath:   DefaultLoginPath,
		landingPath: DefaultLandingPath,
		state:       StateLoading,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe consumes an auth-state notification. A principal the policy rejects
// counts as signed out. Repeated notifications for the same state are no-ops.
func (m *Machine) Observe(p *models.Principal) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := StateSignedOut
	if p != nil && m.policy.Authorize(p) {
		next = StateSignedIn
	} else {
		p = nil
	}

	if next != m.state {
		m.lastRedirect = ""
	}
	m.state = next
	m.principal = p
	return next
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Principal returns the authorized principal, nil unless signed in.
func (m *Machine) Principal() *models.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.principal
}

// LoginPath returns the sign-in view path.
func (m *Machine) LoginPath() string { return m.loginPath }

// LandingPath returns the teacher landing view path.
func (m *Machine) LandingPath() string { return m.landingPath }

// Target returns the path a redirect decision navigates to.
func (m *Machine) Target(d Decision) string {
	switch d {
	case RedirectLogin:
		return m.loginPath
	case RedirectLanding:
		return m.landingPath
	default:
		return ""
	}
}

// Evaluate decides what to do for path under the current state. A redirect
// is emitted once per state and path; evaluating again returns Stay.
func (m *Machine) Evaluate(path string) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	onLogin := samePath(path, m.loginPath)

	var d Decision
	switch m.state {
	case StateLoading:
		return ShowLoading
	case StateSignedOut:
		if onLogin {
			m.lastRedirect = ""
			return Render
		}
		d = RedirectLogin
	default:
		if !onLogin {
			m.lastRedirect = ""
			return Render
		}
		d = RedirectLanding
	}

	key := d.String() + "|" + normalize(path)
	if key == m.lastRedirect {
		return Stay
	}
	m.lastRedirect = key
	return d
}

func samePath(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}
