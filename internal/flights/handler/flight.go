package handler

import (
	"net/http"

	"travelcore/internal/flights/service"
	httputil "travelcore/pkg/http"
	"travelcore/pkg/logger"
	"travelcore/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type FlightHandler struct {
	service service.FlightService
	log     *logger.Logger
}

func NewFlightHandler(service service.FlightService, log *logger.Logger) *FlightHandler {
	return &FlightHandler{
		service: service,
		log:     log,
	}
}

func (h *FlightHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *FlightHandler) CreateSchedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.ScheduleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateSchedule", err)
		return
	}

	c, err := h.service.CreateScheduleClaim(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateSchedule", err)
		return
	}

	if err := httputil.WriteCreated(w, c); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateSchedule", "operation", "WriteCreated", "error", err)
	}
}

func (h *FlightHandler) GetSchedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.service.GetClaim(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSchedule", err)
		return
	}

	if err := httputil.WriteSuccess(w, c); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSchedule", "operation", "WriteSuccess", "error", err)
	}
}

// ListSchedules returns one aircraft's claims for ?date=YYYY-MM-DD.
func (h *FlightHandler) ListSchedules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	claims, err := h.service.ListClaims(r.Context(), ps.ByName("aircraft_id"), r.URL.Query().Get("date"))
	if err != nil {
		h.writeError(w, "ListSchedules", err)
		return
	}

	if err := httputil.WriteSuccess(w, claims); err != nil {
		h.log.Error("failed to write success response", "handler", "ListSchedules", "operation", "WriteSuccess", "error", err)
	}
}

func (h *FlightHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var wire model.StatusWire
	if err := httputil.DecodeJSON(r, &wire); err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	c, err := h.service.UpdateScheduleStatus(r.Context(), ps.ByName("id"), wire)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, c); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *FlightHandler) CreateLeg(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.LegRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateLeg", err)
		return
	}

	leg, err := h.service.CreateLeg(r.Context(), req)
	if err != nil {
		h.writeError(w, "CreateLeg", err)
		return
	}

	if err := httputil.WriteCreated(w, leg); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateLeg", "operation", "WriteCreated", "error", err)
	}
}

func (h *FlightHandler) ListLegs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	legs, err := h.service.ListLegs(r.Context(), ps.ByName("route_id"))
	if err != nil {
		h.writeError(w, "ListLegs", err)
		return
	}

	if err := httputil.WriteSuccess(w, legs); err != nil {
		h.log.Error("failed to write success response", "handler", "ListLegs", "operation", "WriteSuccess", "error", err)
	}
}

func (h *FlightHandler) SetAircraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.AircraftRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "SetAircraft", err)
		return
	}

	a, err := h.service.SetAircraft(r.Context(), ps.ByName("id"), req)
	if err != nil {
		h.writeError(w, "SetAircraft", err)
		return
	}

	if err := httputil.WriteSuccess(w, a); err != nil {
		h.log.Error("failed to write success response", "handler", "SetAircraft", "operation", "WriteSuccess", "error", err)
	}
}

func (h *FlightHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/schedules", h.CreateSchedule)
	router.GET("/api/v1/schedules/id/:id", h.GetSchedule)
	router.PATCH("/api/v1/schedules/id/:id/status", h.UpdateStatus)
	router.GET("/api/v1/schedules/aircraft/:aircraft_id", h.ListSchedules)
	router.POST("/api/v1/legs", h.CreateLeg)
	router.GET("/api/v1/legs/route/:route_id", h.ListLegs)
	router.PUT("/api/v1/aircraft/id/:id", h.SetAircraft)
}
