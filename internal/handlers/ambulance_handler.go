package handlers

import (
	"strconv"

	"ambudispatch/internal/models"
	"ambudispatch/internal/services"
	"ambudispatch/internal/utils"
	"ambudispatch/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceHandler struct {
	ambulanceService services.AmbulanceService
}

func NewAmbulanceHandler(ambulanceService services.AmbulanceService) *AmbulanceHandler {
	return &AmbulanceHandler{
		ambulanceService: ambulanceService,
	}
}

func (h *AmbulanceHandler) Create(c *gin.Context) {
	var request services.CreateAmbulanceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if details := validators.ValidateStruct(&request); details != nil {
		utils.ValidationErrorResponse(c, details)
		return
	}

	ambulance, err := h.ambulanceService.Create(c.Request.Context(), &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Ambulance created", ambulance)
}

func (h *AmbulanceHandler) Get(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	ambulance, err := h.ambulanceService.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ambulance retrieved", ambulance)
}

func (h *AmbulanceHandler) List(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	status := models.AmbulanceStatus(c.Query("status"))

	var hospitalID *primitive.ObjectID
	if hex := c.Query("hospital_id"); hex != "" {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid hospital_id")
			return
		}
		hospitalID = &id
	}

	ambulances, total, err := h.ambulanceService.List(c.Request.Context(), subject, status, hospitalID, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	meta := &utils.Meta{Pagination: utils.NewPaginationMeta(params, total)}
	utils.SuccessResponseWithMeta(c, "Ambulances retrieved", ambulances, meta)
}

func (h *AmbulanceHandler) Update(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request services.UpdateAmbulanceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ambulance, err := h.ambulanceService.Update(c.Request.Context(), id, &request)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ambulance updated", ambulance)
}

func (h *AmbulanceHandler) Delete(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.ambulanceService.Delete(c.Request.Context(), id); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ambulance deleted", nil)
}

func (h *AmbulanceHandler) AssignDriver(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request struct {
		DriverID string `json:"driver_id" validate:"required,object_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	driverID, err := primitive.ObjectIDFromHex(request.DriverID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver_id")
		return
	}

	if err := h.ambulanceService.AssignDriver(c.Request.Context(), id, driverID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver assigned", nil)
}

func (h *AmbulanceHandler) UnassignDriver(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.ambulanceService.UnassignDriver(c.Request.Context(), id); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Driver unassigned", nil)
}

func (h *AmbulanceHandler) ReassignHospital(c *gin.Context) {
	id, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	var request struct {
		HospitalID string `json:"hospital_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	var hospitalID *primitive.ObjectID
	if request.HospitalID != "" {
		parsed, err := primitive.ObjectIDFromHex(request.HospitalID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid hospital_id")
			return
		}
		hospitalID = &parsed
	}

	if err := h.ambulanceService.ReassignHospital(c.Request.Context(), id, hospitalID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ambulance reassigned", nil)
}

// UpdateLocation is called by the driver app with its current position.
func (h *AmbulanceHandler) UpdateLocation(c *gin.Context) {
	subject, ok := currentSubject(c)
	if !ok {
		return
	}

	var request struct {
		Latitude  float64 `json:"latitude" validate:"required"`
		Longitude float64 `json:"longitude" validate:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ambulance, err := h.ambulanceService.UpdateLocation(c.Request.Context(), subject.UserID, request.Latitude, request.Longitude)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated", ambulance)
}

func (h *AmbulanceHandler) Nearby(c *gin.Context) {
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

	ambulances, err := h.ambulanceService.GetNearby(c.Request.Context(), lat, lng, radius, limit)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Nearby ambulances retrieved", ambulances, &utils.Meta{Count: len(ambulances)})
}
