package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts its routes on an API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under a common API prefix
type Router struct {
	engine     *gin.Engine
	prefix     string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithPrefix sets the API prefix (default "/api")
func WithPrefix(prefix string) RouterOption {
	return func(r *Router) {
		r.prefix = prefix
	}
}

// WithMiddleware adds middleware applied to API routes only. Public
// endpoints registered directly on the engine do not see it.
func WithMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// NewRouter creates a Router on engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine: engine,
		prefix: "/api",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup creates the API group and mounts every registrar on it
func (r *Router) Setup() {
	api := r.engine.Group(r.prefix, r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Resource is the route table of one REST resource, e.g. /orders
type Resource struct {
	path   string
	guards []gin.HandlerFunc
	routes []route
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

// NewResource starts a route table mounted at path
func NewResource(path string) *Resource {
	return &Resource{path: path}
}

// Guard adds middleware run before every route of the resource
func (res *Resource) Guard(mw ...gin.HandlerFunc) *Resource {
	res.guards = append(res.guards, mw...)
	return res
}

// GET registers a GET route relative to the resource path
func (res *Resource) GET(path string, h gin.HandlerFunc) *Resource {
	return res.add(http.MethodGet, path, h)
}

// POST registers a POST route relative to the resource path
func (res *Resource) POST(path string, h gin.HandlerFunc) *Resource {
	return res.add(http.MethodPost, path, h)
}

func (res *Resource) add(method, path string, h gin.HandlerFunc) *Resource {
	res.routes = append(res.routes, route{method: method, path: path, handler: h})
	return res
}

// RegisterRoutes implements RouteRegistrar
func (res *Resource) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(res.path, res.guards...)
	for _, rt := range res.routes {
		group.Handle(rt.method, rt.path, rt.handler)
	}
}
