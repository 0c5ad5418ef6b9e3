package devserver

// Route patterns served by the development backend. Paths mirror the admin API.
const (
	RouteAuthLogin   = "POST /auth/login"
	RouteAuthRefresh = "POST /auth/refresh"
	RouteAuthLogout  = "GET /admin/auth/logout"

	RoutePreflight = "OPTIONS /"

	RouteResourceList   = "GET /{resource}"
	RouteResourceCreate = "POST /{resource}"
	RouteResourceGet    = "GET /{resource}/{id}"
	RouteResourceUpdate = "PUT /{resource}/{id}"
	RouteResourcePatch  = "PATCH /{resource}/{id}"
	RouteResourceDelete = "DELETE /{resource}/{id}"
)
