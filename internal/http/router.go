package httpserver

import (
	"log"
	"net/http"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/http/handlers"
	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/imports", deps.API.Imports)
	mux.HandleFunc("/v1/imports/batch", deps.API.BatchImports)
	mux.HandleFunc("/v1/jobs", deps.API.Jobs)
	mux.HandleFunc("/v1/jobs/", deps.API.JobByID)
	mux.HandleFunc("/v1/batches/", deps.API.BatchByID)
	mux.HandleFunc("/v1/documents", deps.API.Documents)
	mux.HandleFunc("/v1/documents/", deps.API.DocumentByID)
	mux.HandleFunc("/v1/stats", deps.API.Stats)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
