package apiclient

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// UploadResult is the server's answer to a finished deploy.
type UploadResult struct {
	Success  bool   `json:"success"`
	Hash     string `json:"hash"`
	Port     int    `json:"port"`
	Message  string `json:"message"`
	Duration int64  `json:"duration"`
}

// Status is the server's answer to a status query.
type Status struct {
	CurrentDeployment *string `json:"currentDeployment"`
	UploadPort        int     `json:"uploadPort"`
	DeploymentsDir    string  `json:"deploymentsDir"`
	Uptime            int64   `json:"uptime"`
}

// Deploy streams a gzip-compressed tar archive to the server and blocks until
// the deployment finishes.
func (c *Client) Deploy(archive io.Reader, version string, port int, entrypoint string) (*UploadResult, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/upload", archive)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/gzip")
	req.Header.Set("X-Deploy-Hash", version)
	req.Header.Set("X-Deploy-Port", strconv.Itoa(port))
	req.Header.Set("X-Deploy-Entrypoint", entrypoint)

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStatus fetches the server's current deployment status.
func (c *Client) GetStatus() (*Status, error) {
	var status Status
	if err := c.get("/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}
