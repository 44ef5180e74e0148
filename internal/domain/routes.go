package domain

import "strings"

// Access is the authorization level a screen path requires.
type Access int

const (
	AccessPublic Access = iota
	AccessUser
	AccessAdmin
)

// App screen paths the session layer routes to.
const (
	RouteHome           = "/"
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteDashboard      = "/dashboard"
	RouteAdminDashboard = "/admin"
)

var publicRoutes = map[string]struct{}{
	"/":                {},
	"/about":           {},
	"/contact":         {},
	"/faq":             {},
	"/login":           {},
	"/register":        {},
	"/forgot-password": {},
	"/reset-password":  {},
}

var userRoutes = map[string]struct{}{
	"/dashboard":   {},
	"/chatbot":     {},
	"/favorites":   {},
	"/history":     {},
	"/profile":     {},
	"/create-book": {},
	"/my-books":    {},
	"/noteshare":   {},
	"/readnex":     {},
	"/quiz":        {},
}

// AccessFor maps a screen path to its required authorization level.
// Unknown paths default to AccessUser so new screens are gated until they are
// explicitly listed as public.
func AccessFor(path string) Access {
	if _, ok := publicRoutes[path]; ok {
		return AccessPublic
	}
	if path == RouteAdminDashboard || strings.HasPrefix(path, RouteAdminDashboard+"/") {
		return AccessAdmin
	}
	if _, ok := userRoutes[path]; ok {
		return AccessUser
	}
	// Dynamic segments: book detail and per-book quiz screens.
	if strings.HasPrefix(path, "/books/") || strings.HasPrefix(path, "/quiz/") {
		return AccessUser
	}
	return AccessUser
}
