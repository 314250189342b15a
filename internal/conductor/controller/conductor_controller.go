package controller

import (
	"context"

	"sregrade/internal/conductor/model"
	"sregrade/internal/conductor/parser"
	appErr "sregrade/pkg/errors"
	"sregrade/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Grader is the conductor surface the HTTP boundary needs.
type Grader interface {
	Submit(ctx context.Context, raw string) (*model.Results, error)
	Stage() (model.Stage, error)
	AppInfo() (model.AppInfo, error)
	ProblemID() (string, error)
}

// ConductorController handles agent submissions and session queries.
type ConductorController struct {
	grader Grader
}

// NewConductorController creates a new controller.
func NewConductorController(grader Grader) *ConductorController {
	return &ConductorController{grader: grader}
}

// Submit grades a solution against the current stage.
func (h *ConductorController) Submit(c *gin.Context) {
	var req model.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: solution is required")
		return
	}
	results, err := h.grader.Submit(c.Request.Context(), parser.Wrap(*req.Solution))
	if err != nil {
		if appErr.GetCode(err).HTTPStatus() >= 500 {
			err = appErr.Wrapf(err, appErr.InvalidParams, "Grading error: %v", err)
		}
		response.Error(c, err)
		return
	}
	response.Success(c, results)
}

// GetStatus returns the current stage.
func (h *ConductorController) GetStatus(c *gin.Context) {
	stage, err := h.grader.Stage()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model.StatusResponse{Stage: stage})
}

// GetApp describes the application under test.
func (h *ConductorController) GetApp(c *gin.Context) {
	info, err := h.grader.AppInfo()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, info)
}

// GetProblem returns the active problem id.
func (h *ConductorController) GetProblem(c *gin.Context) {
	id, err := h.grader.ProblemID()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model.ProblemResponse{ProblemID: id})
}

// Healthz reports liveness.
func (h *ConductorController) Healthz(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
