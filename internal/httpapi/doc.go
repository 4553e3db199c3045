// Package httpapi exposes the provider directory over HTTP with gin.
//
// Routes:
//
//	GET /health                liveness
//	GET /providers             search; query: bbox=south,west,north,east name specialty category sort page size
//	GET /specialties           distinct specialties
//	GET /categories            distinct categories
//	GET /snapshot              compressed snapshot download, if an exporter is configured
//	GET /metrics               Prometheus exposition, if a gatherer is configured
package httpapi
