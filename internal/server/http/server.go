package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/swimmingwebdev/simpletracker/internal/server/http/controllers"
)

// Server hosts the tracker's REST surface.
type Server struct {
	srv *http.Server
	lis net.Listener
}

// New builds a Server over the given controller dependencies.
func New(deps controllers.Deps) *Server {
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(deps).RegisterAllRoutes(mux)
	return &Server{srv: &http.Server{Handler: cors(mux)}}
}

// ListenAndServe serves until ctx is cancelled, then drains with a bounded
// shutdown window.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
