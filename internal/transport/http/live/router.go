package livehttp

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"verge/internal/logger"
	"verge/internal/pkg/circuit"
	"verge/internal/session"
	"verge/internal/store"
)

const maxBodyBytes = 64 << 10

// Router exposes the hunt operations.
type Router struct {
	hunt     HuntService
	breakers *circuit.Registry
	schema   *jsonschema.Schema
}

func NewRouter(hunt HuntService, breakers *circuit.Registry) (*Router, error) {
	schema, err := compileSchema(strategySchema)
	if err != nil {
		return nil, err
	}
	return &Router{hunt: hunt, breakers: breakers, schema: schema}, nil
}

// Register mounts the routes on group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/sessions", r.handleStartSession)
	group.GET("/sessions/current", r.handleCurrentSession)
	group.POST("/sessions/:id/advance", r.handleAdvance)
	group.POST("/sessions/:id/finalize", r.handleFinalize)
	group.GET("/logs", r.handleLogs)
	group.POST("/strategies", r.handleCreateStrategy)
	group.GET("/strategies/active", r.handleActiveStrategy)
	group.GET("/breakers", r.handleBreakers)
}

func owner(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(OwnerHeader))
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + OwnerHeader})
		return "", false
	}
	return id, true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrInvariant):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrOwnership):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInactive), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("[api] %s failed ip=%s err=%v", op, c.ClientIP(), err)
	} else {
		logger.Warnf("[api] %s rejected ip=%s err=%v", op, c.ClientIP(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (r *Router) handleStartSession(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := r.hunt.StartSession(c.Request.Context(), ownerID, req.Symbol, req.Timeframe)
	if err != nil {
		fail(c, "start session", err)
		return
	}
	logger.Infof("[api] session started owner=%s id=%s symbol=%s tf=%s", ownerID, sess.ID, sess.Symbol, sess.Timeframe)
	c.JSON(http.StatusCreated, sess)
}

func (r *Router) handleCurrentSession(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	sess, err := r.hunt.GetCurrentSession(c.Request.Context(), ownerID)
	if err != nil {
		fail(c, "current session", err)
		return
	}
	if sess == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (r *Router) handleAdvance(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	sess, err := r.hunt.AdvanceStage(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		fail(c, "advance stage", err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (r *Router) handleFinalize(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	sess, err := r.hunt.FinalizeHunt(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		fail(c, "finalize hunt", err)
		return
	}
	logger.Infof("[api] hunt finalized owner=%s id=%s", ownerID, sess.ID)
	c.JSON(http.StatusOK, sess)
}

func (r *Router) handleLogs(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	logs, err := r.hunt.GetAnalysisLogs(c.Request.Context(), ownerID, strings.TrimSpace(c.Query("session_id")), limit)
	if err != nil {
		fail(c, "analysis logs", err)
		return
	}
	if logs == nil {
		logs = []session.AnalysisLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (r *Router) handleCreateStrategy(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := decodeStrategy(r.schema, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	strat, err := r.hunt.CreateStrategy(c.Request.Context(), ownerID, in)
	if err != nil {
		fail(c, "create strategy", err)
		return
	}
	c.JSON(http.StatusCreated, strat)
}

func (r *Router) handleActiveStrategy(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}
	strat, err := r.hunt.ActiveStrategy(c.Request.Context(), ownerID)
	if err != nil {
		fail(c, "active strategy", err)
		return
	}
	if strat == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, strat)
}

func (r *Router) handleBreakers(c *gin.Context) {
	out := gin.H{}
	if r.breakers != nil {
		for name, state := range r.breakers.Snapshot() {
			out[name] = state.String()
		}
	}
	c.JSON(http.StatusOK, gin.H{"breakers": out})
}
