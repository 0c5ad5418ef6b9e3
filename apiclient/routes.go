package apiclient

// Backend paths consumed by the core. They must match the admin API exactly.
const (
	RouteLogin   = "/auth/login"
	RouteRefresh = "/auth/refresh"
	RouteLogout  = "/admin/auth/logout"
)

const (
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-Id"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"

	contentTypeJSON = "application/json"
)

// skipsRecovery lists endpoints whose 401 is final. A failed refresh must not trigger another
// refresh, and a rejected login is a credentials problem, not an expired session.
func skipsRecovery(path string) bool {
	return path == RouteRefresh || path == RouteLogin
}
