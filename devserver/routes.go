package devserver

import "net/http"

func (s *Server) initRoutes() {
	api := s.APIMiddleware()
	authed := append(s.APIMiddleware(), s.RequireAuth())

	s.RegisterRouteFunc(RoutePreflight, ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, api...))
	s.RegisterRouteFunc(RouteAuthLogin, ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteFunc(RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), api...))
	s.RegisterRouteFunc(RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), authed...))

	s.RegisterRouteFunc(RouteResourceList, ChainMiddleware(s.ListHandler(), authed...))
	s.RegisterRouteFunc(RouteResourceCreate, ChainMiddleware(s.CreateHandler(), authed...))
	s.RegisterRouteFunc(RouteResourceGet, ChainMiddleware(s.GetHandler(), authed...))
	s.RegisterRouteFunc(RouteResourceUpdate, ChainMiddleware(s.UpdateHandler(false), authed...))
	s.RegisterRouteFunc(RouteResourcePatch, ChainMiddleware(s.UpdateHandler(true), authed...))
	s.RegisterRouteFunc(RouteResourceDelete, ChainMiddleware(s.DeleteHandler(), authed...))
}
