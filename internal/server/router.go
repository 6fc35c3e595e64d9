package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/fpsmon/internal/session"
)

// Controller is the monitoring control surface served over HTTP.
type Controller interface {
	Start(processName string) error
	Stop() error
	Status() session.Status
}

// Router provides embeddable HTTP handlers for controlling the monitor.
// Endpoints:
//
//	POST {basePath}/start    body: {"process_name": "..."}
//	POST {basePath}/stop
//	GET  {basePath}/status
//	GET  {basePath}/events   websocket stream of {"event": ..., "payload": ...}
//
// basePath may be empty or start with '/'; no trailing slash. The events
// endpoint is only mounted when a Hub is given.
type Router struct {
	ctl      Controller
	hub      *Hub
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/start, /api/stop, /api/status.
func NewRouter(ctl Controller, hub *Hub, basePath string) *Router {
	return &Router{ctl: ctl, hub: hub, basePath: sanitizeBase(basePath)}
}

// BasePath returns the sanitized mount point.
func (r *Router) BasePath() string { return r.basePath }

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/status", r.handleStatus)
	if r.hub != nil {
		group.GET("/events", gin.WrapH(r.hub))
	}
	return g
}

// NewServer returns an http.Server for addr serving this router. The caller
// runs ListenAndServe and Shutdown.
func NewServer(addr string, r *Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

// StartRequest is the body of POST /start.
type StartRequest struct {
	ProcessName string `json:"process_name"`
}

func (r *Router) handleStart(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	name := strings.TrimSpace(req.ProcessName)
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "process_name required"})
		return
	}
	if !isSafeName(name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid process_name: letters, digits, space and . _ - ( ) + only, no '..' or path separators"})
		return
	}
	if err := r.ctl.Start(name); err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, session.ErrAlreadyRunning) {
			code = http.StatusConflict
		}
		writeJSON(c, code, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	if err := r.ctl.Stop(); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.ctl.Status())
}
