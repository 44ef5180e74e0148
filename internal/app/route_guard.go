package app

import "readnex-service/internal/domain"

// GuardAction is what the caller should do with a guarded screen.
type GuardAction int

const (
	// ActionRender lets the guarded content through.
	ActionRender GuardAction = iota
	// ActionWait means the session is still resolving; render a loading
	// indicator and do not redirect yet.
	ActionWait
	// ActionRedirect moves the user to Decision.Path and shows the notice.
	ActionRedirect
)

// Notices surfaced alongside guard redirects.
const (
	NoticeAuthRequired = "Please log in to continue."
	NoticeAccessDenied = "You do not have access to that page."
)

// Decision is the outcome of a guard evaluation. The navigation and
// notification side effects belong to the caller; Decide itself is pure so it
// can be re-evaluated on every session or prop change.
type Decision struct {
	Action GuardAction
	Path   string
	Notice string
}

// Decide gates a screen that requires authentication (and optionally staff
// privileges) against the current session snapshot.
func Decide(snap Snapshot, requireAdmin bool) Decision {
	switch snap.State {
	case StateUnknown:
		return Decision{Action: ActionWait}
	case StateUnauthenticated:
		return Decision{Action: ActionRedirect, Path: domain.RouteLogin, Notice: NoticeAuthRequired}
	}
	if requireAdmin && (snap.User == nil || !snap.User.IsStaff) {
		return Decision{Action: ActionRedirect, Path: domain.RouteDashboard, Notice: NoticeAccessDenied}
	}
	return Decision{Action: ActionRender}
}

// DecideForPath looks up the access level for an app screen path and applies
// Decide. Public paths always render.
func DecideForPath(snap Snapshot, path string) Decision {
	switch domain.AccessFor(path) {
	case domain.AccessPublic:
		return Decision{Action: ActionRender}
	case domain.AccessAdmin:
		return Decide(snap, true)
	default:
		return Decide(snap, false)
	}
}
