package handlers

import (
	"strconv"
	"strings"

	"ambudispatch/internal/services"
	"ambudispatch/internal/utils"
	"ambudispatch/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HospitalHandler struct {
	hospitalService services.HospitalService
	locatorService  services.LocatorService
}

func NewHospitalHandler(hospitalService services.HospitalService, locatorService services.LocatorService) *HospitalHandler {
	return &HospitalHandler{
		hospitalService: hospitalService,
		locatorService:  locatorService,
	}
}

func (h *HospitalHandler) Create(c *gin.Context) {
	var request services.CreateHospitalRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	hospital, err := h.hospitalService.Create(c.Request.Context(), &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Hospital created", hospital)
}

func (h *HospitalHandler) Get(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	hospital, err := h.hospitalService.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Hospital retrieved", hospital)
}

func (h *HospitalHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	hospitals, total, err := h.hospitalService.List(c.Request.Context(), params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	meta := &utils.Meta{Pagination: utils.NewPaginationMeta(params, total)}
	utils.SuccessResponseWithMeta(c, "Hospitals retrieved", hospitals, meta)
}

func (h *HospitalHandler) Update(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request services.UpdateHospitalRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	hospital, err := h.hospitalService.Update(c.Request.Context(), id, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Hospital updated", hospital)
}

func (h *HospitalHandler) Delete(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.hospitalService.Delete(c.Request.Context(), id); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Hospital deleted", nil)
}

func (h *HospitalHandler) AddAdministrator(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request struct {
		UserID string `json:"user_id" validate:"required,object_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	userID, err := primitive.ObjectIDFromHex(request.UserID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user_id")
		return
	}

	if err := h.hospitalService.AddAdministrator(c.Request.Context(), id, userID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Administrator added", nil)
}

func (h *HospitalHandler) RemoveAdministrator(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	userID, ok := pathObjectID(c, "userId")
	if !ok {
		return
	}

	if err := h.hospitalService.RemoveAdministrator(c.Request.Context(), id, userID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Administrator removed", nil)
}

// Nearby merges registered hospitals with external provider results.
func (h *HospitalHandler) Nearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid latitude")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid longitude")
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius", "0"), 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	results, warnings, err := h.locatorService.FindNearbyHospitals(c.Request.Context(), lat, lng, radius, limit)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	meta := &utils.Meta{Count: len(results)}
	if len(warnings) > 0 {
		meta.Warning = strings.Join(warnings, "; ")
	}

	utils.SuccessResponseWithMeta(c, "Nearby hospitals retrieved", results, meta)
}
