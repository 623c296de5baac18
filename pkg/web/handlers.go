// Package web provides the administrative REST API for workflows, runs, SLA
// targets and incidents. Configuration mutations live here; the engine itself
// only ever reads this data.
package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/opsdesk/pkg/models"
	"github.com/dukex/opsdesk/pkg/persistence"
	"github.com/dukex/opsdesk/pkg/registry"
	"github.com/dukex/opsdesk/pkg/workflow"
)

type APIHandlers struct {
	persistence persistence.Persistence
	enqueuer    *workflow.Enqueuer
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	p persistence.Persistence,
	enqueuer *workflow.Enqueuer,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		enqueuer:    enqueuer,
		validator:   validator,
		registry:    registry,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.fetchWorkflow(c)
	if err != nil {
		return err
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf := &models.Workflow{
		Name:         req.Name,
		TriggerType:  req.TriggerType,
		MinutesDelay: req.MinutesDelay,
		IsActive:     req.IsActive,
	}

	err := h.persistence.SaveWorkflow(c.Context(), wf)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := h.fetchWorkflow(c)
	if err != nil {
		return err
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}

	if req.TriggerType != nil {
		wf.TriggerType = *req.TriggerType
	}

	if req.MinutesDelay != nil {
		wf.MinutesDelay = req.MinutesDelay
	}

	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}

	err = h.persistence.SaveWorkflow(c.Context(), wf)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.persistence.DeleteWorkflow(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowActions(c fiber.Ctx) error {
	wf, err := h.fetchWorkflow(c)
	if err != nil {
		return err
	}

	actions, err := h.persistence.WorkflowActions(c.Context(), wf.ID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"actions": actions})
}

// CreateWorkflowAction appends an action to a workflow. The configuration is
// validated against the action type's schema; unknown action types are
// accepted so that workflows can be configured ahead of an action rollout.
func (h *APIHandlers) CreateWorkflowAction(c fiber.Ctx) error {
	var req CreateActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := h.fetchWorkflow(c)
	if err != nil {
		return err
	}

	err = h.registry.ValidateActionConfig(req.ActionType, req.ActionConfig)
	if err != nil && !errors.Is(err, registry.ErrActionNotRegistered) {
		return badRequest(c, err.Error())
	}

	action := &models.WorkflowAction{
		WorkflowID:   wf.ID,
		ActionType:   req.ActionType,
		ActionConfig: req.ActionConfig,
		Position:     req.Position,
	}

	err = h.persistence.SaveWorkflowAction(c.Context(), action)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(action)
}

func (h *APIHandlers) DeleteWorkflowAction(c fiber.Ctx) error {
	actionID := c.Params("actionId")
	if actionID == "" {
		return badRequest(c, "Action ID is required")
	}

	err := h.persistence.DeleteWorkflowAction(c.Context(), actionID)
	if err != nil {
		if persistence.IsWorkflowActionNotFound(err) {
			return notFound(c, "Workflow action not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	filter := persistence.RunFilter{
		WorkflowID: c.Query("workflow_id"),
		Status:     models.RunStatus(c.Query("status")),
	}

	limit, err := parseLimit(c)
	if err != nil {
		return badRequest(c, "Invalid limit: "+err.Error())
	}

	filter.Limit = limit

	runs, err := h.persistence.Runs(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.persistence.RunByID(c.Context(), id)
	if err != nil {
		if persistence.IsRunNotFound(err) {
			return notFound(c, "Run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GetSlaTargets(c fiber.Ctx) error {
	targets, err := h.persistence.SlaTargets(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"sla_targets": targets})
}

func (h *APIHandlers) GetSlaTarget(c fiber.Ctx) error {
	target, err := h.fetchSlaTarget(c)
	if err != nil {
		return err
	}

	return c.JSON(target)
}

func (h *APIHandlers) CreateSlaTarget(c fiber.Ctx) error {
	var req CreateSlaTargetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	target := &models.SlaTarget{
		Name:             req.Name,
		EntityType:       req.EntityType,
		ThresholdMinutes: req.ThresholdMinutes,
		IsActive:         req.IsActive,
	}

	err := h.persistence.SaveSlaTarget(c.Context(), target)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(target)
}

func (h *APIHandlers) UpdateSlaTarget(c fiber.Ctx) error {
	var req UpdateSlaTargetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	target, err := h.fetchSlaTarget(c)
	if err != nil {
		return err
	}

	if req.Name != nil {
		target.Name = *req.Name
	}

	if req.ThresholdMinutes != nil {
		target.ThresholdMinutes = *req.ThresholdMinutes
	}

	if req.IsActive != nil {
		target.IsActive = *req.IsActive
	}

	err = h.persistence.SaveSlaTarget(c.Context(), target)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(target)
}

func (h *APIHandlers) GetIncidents(c fiber.Ctx) error {
	filter := persistence.IncidentFilter{
		TargetID: c.Query("target_id"),
		Status:   models.IncidentStatus(c.Query("status")),
	}

	limit, err := parseLimit(c)
	if err != nil {
		return badRequest(c, "Invalid limit: "+err.Error())
	}

	filter.Limit = limit

	incidents, err := h.persistence.Incidents(c.Context(), filter)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"incidents": incidents})
}

// GetActionFactories lists the registered action types with their schemas,
// for configuration UIs.
func (h *APIHandlers) GetActionFactories(c fiber.Ctx) error {
	factories := h.registry.ActionFactories()

	response := make([]ActionFactoryResponse, 0, len(factories))
	for _, factory := range factories {
		response = append(response, ActionFactoryResponse{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return c.JSON(fiber.Map{"actions": response})
}

// EnqueueTrigger fires a trigger by hand, fanning out to subscribed active
// workflows exactly as a bus-delivered event would.
func (h *APIHandlers) EnqueueTrigger(c fiber.Ctx) error {
	var req EnqueueTriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	runs, err := h.enqueuer.EnqueueTrigger(c.Context(), req.TriggerType, req.Payload)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) fetchWorkflow(c fiber.Ctx) (*models.Workflow, error) {
	id := c.Params("id")
	if id == "" {
		return nil, badRequest(c, "Workflow ID is required")
	}

	wf, err := h.persistence.WorkflowByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, notFound(c, "Workflow not found")
		}

		return nil, internalError(c, err)
	}

	return wf, nil
}

func (h *APIHandlers) fetchSlaTarget(c fiber.Ctx) (*models.SlaTarget, error) {
	id := c.Params("id")
	if id == "" {
		return nil, badRequest(c, "SLA target ID is required")
	}

	target, err := h.persistence.SlaTargetByID(c.Context(), id)
	if err != nil {
		if persistence.IsSlaTargetNotFound(err) {
			return nil, notFound(c, "SLA target not found")
		}

		return nil, internalError(c, err)
	}

	return target, nil
}

func parseLimit(c fiber.Ctx) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0, nil
	}

	return strconv.Atoi(limitStr)
}
