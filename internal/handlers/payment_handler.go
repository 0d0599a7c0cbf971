package handlers

import (
	"ambudispatch/internal/apperr"
	"ambudispatch/internal/models"
	"ambudispatch/internal/services"
	"ambudispatch/internal/utils"
	"ambudispatch/internal/validators"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(paymentService services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) Create(c *gin.Context) {
	var request services.CreatePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	payment, err := h.paymentService.CreateForEmergency(c.Request.Context(), &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Payment created", payment)
}

func (h *PaymentHandler) Process(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.Process(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment processed", payment)
}

func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request services.RefundRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	payment, err := h.paymentService.Refund(c.Request.Context(), id, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Payment refunded", payment)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	// Patients only see their own payments.
	if subject.Role != models.RoleAdmin && payment.PatientID != subject.UserID {
		utils.DomainErrorResponse(c, apperr.Forbidden("payment belongs to another user"))
		return
	}

	utils.SuccessResponse(c, "Payment retrieved", payment)
}

func (h *PaymentHandler) GetByEmergency(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	id, ok := pathObjectID(c, "emergencyId")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByEmergency(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	if subject.Role != models.RoleAdmin && payment.PatientID != subject.UserID {
		utils.DomainErrorResponse(c, apperr.Forbidden("payment belongs to another user"))
		return
	}

	utils.SuccessResponse(c, "Payment retrieved", payment)
}

func (h *PaymentHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	status := models.PaymentStatus(c.Query("status"))

	payments, total, err := h.paymentService.List(c.Request.Context(), status, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	meta := &utils.Meta{Pagination: utils.NewPaginationMeta(params, total)}
	utils.SuccessResponseWithMeta(c, "Payments retrieved", payments, meta)
}
