package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/subseaworks/corridor-simulator/core"
)

// statusForError maps core sentinel errors onto HTTP status codes, the
// invalid-argument/not-found split the command surface contract defines.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrPendingNotFound), errors.Is(err, core.ErrUnknownAUV):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnknownAsset),
		errors.Is(err, core.ErrKPOutOfRange),
		errors.Is(err, core.ErrUnknownHazard),
		errors.Is(err, core.ErrAUVNotStranded),
		errors.Is(err, core.ErrInvalidDilation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), ErrorResponse{Error: err.Error()})
}

func (s *Server) injectHazard(c *gin.Context) {
	var req InjectHazardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	id, err := s.sim.InjectHazard(req.Kind, req.AssetID, req.KP, req.Severity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) listHazards(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.HazardSnapshots())
}

func (s *Server) dispatchInvestigation(c *gin.Context) {
	var req DispatchInvestigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	id, err := s.sim.DispatchInvestigation(req.AssetID, req.KP)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, IDResponse{ID: id})
}

func (s *Server) listSegments(c *gin.Context) {
	asset := c.Param("asset")
	from := intQuery(c, "from", 0)
	to := intQuery(c, "to", 0)
	snaps, err := s.sim.SegmentSnapshots(asset, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snaps)
}

func (s *Server) listSectors(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.SectorSnapshots())
}

func (s *Server) listAUVs(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.AUVSnapshots())
}

func (s *Server) abortMission(c *gin.Context) {
	if err := s.sim.AbortMission(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, StatusResponse{Status: "aborting"})
}

func (s *Server) recoverAUV(c *gin.Context) {
	if err := s.sim.RecoverAUV(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "recovered"})
}

func (s *Server) listApprovals(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.PendingApprovals())
}

func (s *Server) approveRepair(c *gin.Context) {
	if err := s.sim.ApproveRepair(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "approved"})
}

func (s *Server) escalateShutdown(c *gin.Context) {
	if err := s.sim.EscalateShutdown(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "shutdown-escalated"})
}

func (s *Server) manualOverride(c *gin.Context) {
	if err := s.sim.ManualOverride(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "overridden"})
}

func (s *Server) getClock(c *gin.Context) {
	c.JSON(http.StatusOK, ClockResponse{
		SimTime:  s.sim.SimTime(),
		Dilation: s.sim.TimeDilation(),
	})
}

func (s *Server) setDilation(c *gin.Context) {
	var req SetDilationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.sim.SetTimeDilation(req.Factor); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClockResponse{
		SimTime:  s.sim.SimTime(),
		Dilation: s.sim.TimeDilation(),
	})
}

func (s *Server) listEvents(c *gin.Context) {
	limit := intQuery(c, "limit", 100)
	c.JSON(http.StatusOK, s.sim.Events().Recent(limit))
}

func (s *Server) drainDirty(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"assets": s.sim.DirtyAssets()})
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
