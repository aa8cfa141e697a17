package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aescanero/dago-workflow/pkg/domain"
	"github.com/aescanero/dago-workflow/pkg/workflowspec"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// InstructionRequest carries a raw instruction and its caller
type InstructionRequest struct {
	Instruction map[string]interface{} `json:"instruction" binding:"required"`
	CallerID    string                 `json:"caller_id"`
}

// ExecuteRequest is the optional body of an execute call
type ExecuteRequest struct {
	CallerID string `json:"caller_id"`
}

// ComposeResponse represents a workflow composition response
type ComposeResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// ExecuteResponse carries the execution result and, when the run did not
// complete, the error that ended it
type ExecuteResponse struct {
	Result *domain.ExecutionResult `json:"result"`
	Error  *ErrorDetail            `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth reports coordinator and worker pool health
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := s.coordinator.Health(ctx)

	status := http.StatusOK
	healthy := "healthy"
	if !report.Healthy {
		status = http.StatusServiceUnavailable
		healthy = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":      healthy,
		"timestamp":   report.Timestamp.UTC(),
		"coordinator": report,
	})
}

// handleProcessInstruction normalizes and executes a single instruction
func (s *Server) handleProcessInstruction(c *gin.Context) {
	var req InstructionRequest
	if !s.bind(c, &req) {
		return
	}

	out, err := s.coordinator.ProcessInstruction(c.Request.Context(), req.Instruction, callerID(c, req.CallerID))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// handleNormalizeInstruction returns the canonical form of an instruction
func (s *Server) handleNormalizeInstruction(c *gin.Context) {
	var req InstructionRequest
	if !s.bind(c, &req) {
		return
	}

	inst, err := s.coordinator.NormalizeInstruction(req.Instruction)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, inst)
}

// handleGetCached returns the cached result for an instruction hash
func (s *Server) handleGetCached(c *gin.Context) {
	hash := c.Param("hash")

	result, err := s.coordinator.GetCachedInstruction(c.Request.Context(), hash)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hash":   hash,
		"result": result,
	})
}

// handleComposeWorkflow composes a workflow from a JSON or YAML spec
func (s *Server) handleComposeWorkflow(c *gin.Context) {
	spec, err := s.readSpec(c)
	if err != nil {
		s.logger.Warn("invalid workflow spec", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "invalid_request",
				Message: err.Error(),
			},
		})
		return
	}

	workflowID, err := s.coordinator.Compose(c.Request.Context(), spec)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ComposeResponse{
		WorkflowID: workflowID,
		Status:     string(domain.WorkflowStatusReady),
	})
}

func (s *Server) readSpec(c *gin.Context) (*domain.WorkflowSpec, error) {
	contentType := c.ContentType()
	if strings.Contains(contentType, "yaml") {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		return workflowspec.Parse(body)
	}

	var spec domain.WorkflowSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// handleListWorkflows lists all registered workflows
func (s *Server) handleListWorkflows(c *gin.Context) {
	workflows, err := s.coordinator.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if workflows == nil {
		workflows = []*domain.Workflow{}
	}

	c.JSON(http.StatusOK, gin.H{
		"workflows": workflows,
		"total":     len(workflows),
	})
}

// handleGetWorkflow returns a workflow with its instructions
func (s *Server) handleGetWorkflow(c *gin.Context) {
	wf, err := s.coordinator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, wf)
}

// handleGetStatus returns the lifecycle state of a workflow
func (s *Server) handleGetStatus(c *gin.Context) {
	workflowID := c.Param("id")

	status, err := s.coordinator.Status(c.Request.Context(), workflowID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workflow_id": workflowID,
		"status":      status,
	})
}

// handleExecuteWorkflow runs a workflow and waits for its result
func (s *Server) handleExecuteWorkflow(c *gin.Context) {
	var req ExecuteRequest
	if c.Request.ContentLength > 0 {
		if !s.bind(c, &req) {
			return
		}
	}

	res, err := s.coordinator.Execute(c.Request.Context(), c.Param("id"), callerID(c, req.CallerID))
	if res == nil {
		s.writeError(c, err)
		return
	}

	resp := ExecuteResponse{Result: res}
	status := http.StatusOK
	if err != nil {
		detail := errorDetail(err)
		resp.Error = &detail
		status = statusFor(err)
	}
	c.JSON(status, resp)
}

// handleOptimizeWorkflow applies the optimizer rules to a workflow
func (s *Server) handleOptimizeWorkflow(c *gin.Context) {
	wf, err := s.coordinator.Optimize(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, wf)
}

// handleCancelWorkflow handles workflow cancellation
func (s *Server) handleCancelWorkflow(c *gin.Context) {
	workflowID := c.Param("id")

	if err := s.coordinator.Cancel(c.Request.Context(), workflowID); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workflow_id":  workflowID,
		"status":       domain.WorkflowStatusCancelled,
		"cancelled_at": time.Now().UTC(),
	})
}

func (s *Server) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.logger.Warn("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "invalid_request",
				Message: err.Error(),
			},
		})
		return false
	}
	return true
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: errorDetail(err)})
}

// callerID prefers the body field over the header
func callerID(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader(CallerIDHeader)
}

func errorDetail(err error) ErrorDetail {
	detail := ErrorDetail{
		Code:    domain.Code(err),
		Message: err.Error(),
	}

	var de *domain.Error
	if errors.As(err, &de) {
		switch {
		case len(de.Fields) > 0:
			detail.Details = gin.H{"fields": de.Fields}
		case de.ID != "":
			detail.Details = gin.H{"id": de.ID}
		}
	}
	return detail
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingRequiredFields),
		errors.Is(err, domain.ErrMissingWorkflowFields),
		errors.Is(err, domain.ErrInvalidInstruction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCircularDependency),
		errors.Is(err, domain.ErrUnknownDependency),
		errors.Is(err, domain.ErrDuplicateInstructionID),
		errors.Is(err, domain.ErrInstructionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrNotCached):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrWorkflowAlreadyRunning),
		errors.Is(err, domain.ErrWorkflowAlreadyCompleted),
		errors.Is(err, domain.ErrWorkflowPreviouslyFailed),
		errors.Is(err, domain.ErrWorkflowCancelled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCoordinatorStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
