package supervisor

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"

	"github.com/slipway-sh/slipway/internal/logger"
)

// newProxy builds the frontend handler: every request on the deployment port
// is forwarded to the application over its unix domain socket.
func newProxy(socketPath string) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			// The host is a placeholder; the transport dials the socket
			// regardless of what the URL says.
			req.URL.Scheme = "http"
			req.URL.Host = "app"
		},
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("proxy request failed", "path", r.URL.Path, "error", err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}
