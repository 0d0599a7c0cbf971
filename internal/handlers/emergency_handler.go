package handlers

import (
	"strings"

	"ambudispatch/internal/models"
	"ambudispatch/internal/services"
	"ambudispatch/internal/utils"
	"ambudispatch/internal/validators"

	"github.com/gin-gonic/gin"
)

type EmergencyHandler struct {
	emergencyService    services.EmergencyService
	notificationService services.NotificationService
}

func NewEmergencyHandler(emergencyService services.EmergencyService, notificationService services.NotificationService) *EmergencyHandler {
	return &EmergencyHandler{
		emergencyService:    emergencyService,
		notificationService: notificationService,
	}
}

func (h *EmergencyHandler) Create(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	var request services.CreateEmergencyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	emergency, err := h.emergencyService.Create(c.Request.Context(), subject, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Emergency reported", emergency)
}

func (h *EmergencyHandler) Get(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	emergency, err := h.emergencyService.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency retrieved", emergency)
}

func (h *EmergencyHandler) List(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	status := models.EmergencyStatus(c.Query("status"))

	emergencies, total, err := h.emergencyService.List(c.Request.Context(), subject, status, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	meta := &utils.Meta{Pagination: utils.NewPaginationMeta(params, total)}
	utils.SuccessResponseWithMeta(c, "Emergencies retrieved", emergencies, meta)
}

// MyEmergencies lists the caller's own history.
func (h *EmergencyHandler) MyEmergencies(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	emergencies, total, err := h.emergencyService.GetByPatient(c.Request.Context(), subject.UserID, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	meta := &utils.Meta{Pagination: utils.NewPaginationMeta(params, total)}
	utils.SuccessResponseWithMeta(c, "Emergencies retrieved", emergencies, meta)
}

func (h *EmergencyHandler) Assign(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request services.AssignRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	emergency, warnings, err := h.emergencyService.Assign(c.Request.Context(), subject, id, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	var meta *utils.Meta
	if len(warnings) > 0 {
		meta = &utils.Meta{Warning: strings.Join(warnings, "; ")}
	}

	utils.SuccessResponseWithMeta(c, "Emergency assigned", emergency, meta)
}

func (h *EmergencyHandler) UpdateStatus(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request services.UpdateStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	emergency, err := h.emergencyService.UpdateStatus(c.Request.Context(), subject, id, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency status updated", emergency)
}

// Cancel is shorthand for a transition to cancelled.
func (h *EmergencyHandler) Cancel(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request struct {
		Reason string `json:"reason"`
	}
	c.ShouldBindJSON(&request)

	emergency, err := h.emergencyService.UpdateStatus(c.Request.Context(), subject, id, &services.UpdateStatusRequest{
		Status: models.EmergencyStatusCancelled,
		Reason: request.Reason,
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Emergency cancelled", emergency)
}

func (h *EmergencyHandler) AddFeedback(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request services.FeedbackRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	emergency, err := h.emergencyService.AddFeedback(c.Request.Context(), subject, id, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Feedback recorded", emergency)
}

// Messages returns the SMS log for an emergency.
func (h *EmergencyHandler) Messages(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	messages, err := h.notificationService.GetEmergencyMessages(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Messages retrieved", messages, &utils.Meta{Count: len(messages)})
}
