package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/slipway-sh/slipway/internal/logger"
)

// handler serves the control-plane endpoints.
type handler struct {
	deployer   Deployer
	uploadPort int
	startedAt  time.Time
}

func newHandler(d Deployer, uploadPort int, startedAt time.Time) *handler {
	return &handler{deployer: d, uploadPort: uploadPort, startedAt: startedAt}
}

// uploadResponse is the JSON body of a finished upload request.
type uploadResponse struct {
	Success  bool   `json:"success"`
	Hash     string `json:"hash,omitempty"`
	Port     int    `json:"port,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration int64  `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// statusResponse is the JSON body of a status request.
type statusResponse struct {
	CurrentDeployment *string `json:"currentDeployment"`
	UploadPort        int     `json:"uploadPort"`
	DeploymentsDir    string  `json:"deploymentsDir"`
	Uptime            int64   `json:"uptime"`
}

// healthResponse is the JSON body of the health probes.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Upload handles POST /upload: the body is a gzip-compressed tar stream and
// the deployment parameters travel in headers. Header problems are the
// client's fault and come back as plain-text 400s before any deploy work
// starts; failures past that point are JSON 500s.
func (h *handler) Upload(w http.ResponseWriter, r *http.Request) {
	version := r.Header.Get("X-Deploy-Hash")
	if version == "" {
		http.Error(w, "missing X-Deploy-Hash header", http.StatusBadRequest)
		return
	}

	portStr := r.Header.Get("X-Deploy-Port")
	if portStr == "" {
		http.Error(w, "missing X-Deploy-Port header", http.StatusBadRequest)
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		http.Error(w, "invalid X-Deploy-Port header: "+portStr, http.StatusBadRequest)
		return
	}

	entrypoint := r.Header.Get("X-Deploy-Entrypoint")
	if entrypoint == "" {
		http.Error(w, "missing X-Deploy-Entrypoint header", http.StatusBadRequest)
		return
	}

	start := time.Now()
	desc, err := h.deployer.Deploy(r.Context(), version, r.Body, port, entrypoint)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, uploadResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:  true,
		Hash:     desc.Version,
		Port:     desc.Port,
		Message:  "deployment successful",
		Duration: time.Since(start).Milliseconds(),
	})
}

// Status handles GET /status.
func (h *handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		UploadPort:     h.uploadPort,
		DeploymentsDir: h.deployer.DeploymentsRoot(),
		Uptime:         int64(time.Since(h.startedAt).Seconds()),
	}
	if cur := h.deployer.Current(); cur != nil {
		resp.CurrentDeployment = &cur.Version
	}
	writeJSON(w, http.StatusOK, resp)
}

// Liveness handles GET /health.
func (h *handler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// Readiness handles GET /health/ready. The control plane is ready as soon as
// it serves; recovery of a previous deployment runs concurrently and does not
// gate readiness.
func (h *handler) Readiness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
