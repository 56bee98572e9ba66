package handler

import (
	"net/http"

	"travelcore/internal/hotels/service"
	httputil "travelcore/pkg/http"
	"travelcore/pkg/logger"
	"travelcore/pkg/middleware"
	"travelcore/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type HotelHandler struct {
	service service.HotelService
	log     *logger.Logger
}

func NewHotelHandler(service service.HotelService, log *logger.Logger) *HotelHandler {
	return &HotelHandler{
		service: service,
		log:     log,
	}
}

func (h *HotelHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *HotelHandler) CreateRoomType(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var rt model.RoomType
	if err := httputil.DecodeJSON(r, &rt); err != nil {
		h.writeError(w, "CreateRoomType", err)
		return
	}

	if err := h.service.CreateRoomType(r.Context(), &rt); err != nil {
		h.writeError(w, "CreateRoomType", err)
		return
	}

	if err := httputil.WriteCreated(w, rt); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRoomType", "operation", "WriteCreated", "error", err)
	}
}

func (h *HotelHandler) GetRoomType(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rt, err := h.service.GetRoomType(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetRoomType", err)
		return
	}

	if err := httputil.WriteSuccess(w, rt); err != nil {
		h.log.Error("failed to write success response", "handler", "GetRoomType", "operation", "WriteSuccess", "error", err)
	}
}

// UpsertAvailability takes the room type from the path; a room_type_id in the
// body is ignored.
func (h *HotelHandler) UpsertAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.AvailabilityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "UpsertAvailability", err)
		return
	}
	req.RoomTypeID = ps.ByName("id")

	a, err := h.service.UpsertAvailability(r.Context(), req)
	if err != nil {
		h.writeError(w, "UpsertAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, a); err != nil {
		h.log.Error("failed to write success response", "handler", "UpsertAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *HotelHandler) decodeStay(r *http.Request) (service.BookingRequest, error) {
	var req service.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	if user := r.Header.Get(middleware.UserIDHeader); user != "" {
		req.UserID = user
	}
	return req, nil
}

func (h *HotelHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := h.decodeStay(r)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	quote, err := h.service.QuoteRooms(r.Context(), req)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Quote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *HotelHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := h.decodeStay(r)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	booking, err := h.service.BookRooms(r.Context(), req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *HotelHandler) GetBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	b, err := h.service.GetBooking(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *HotelHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/room-types", h.CreateRoomType)
	router.GET("/api/v1/room-types/id/:id", h.GetRoomType)
	router.PUT("/api/v1/room-types/id/:id/availability", h.UpsertAvailability)
	router.POST("/api/v1/bookings/quote", h.Quote)
	router.POST("/api/v1/bookings", h.Book)
	router.GET("/api/v1/bookings/id/:id", h.GetBooking)
}
