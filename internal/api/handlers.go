package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/medadmin/internal/admin"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the admin pages and JSON endpoints
type Handler struct {
	svc    *admin.Service
	pages  *Pages
	pinger Pinger
}

// NewHandler creates a Handler. pinger may be nil, in which case the
// health endpoint always reports ok.
func NewHandler(svc *admin.Service, pinger Pinger) (*Handler, error) {
	pages, err := LoadPages()
	if err != nil {
		return nil, err
	}
	return &Handler{svc: svc, pages: pages, pinger: pinger}, nil
}

func requestLog(r *http.Request) *zerolog.Event {
	return log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", RequestIDFromContext(r.Context())).
		Str("admin", AdminFromContext(r.Context()))
}

// renderView answers the view as JSON when asked, otherwise renders page
func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, page string, view any, failMessage string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	body, err := h.pages.render(page, view)
	if err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, failMessage, http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, body)
}

// confirm answers a completed action with the confirmation page
func (h *Handler) confirm(w http.ResponseWriter, r *http.Request, c Confirmation) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"message":  c.Heading,
			"redirect": c.ReturnURL,
		})
		return
	}
	body, err := h.pages.render(pageConfirmation, confirmationPage{
		Confirmation:   c,
		RedirectMillis: confirmationRedirect.Milliseconds(),
	})
	if err != nil {
		// the action already succeeded, so fall back to plain text
		log.Error().Err(err).Msg("Failed to render confirmation page")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(c.Heading))
		return
	}
	writeHTML(w, http.StatusOK, body)
}

// DashboardHandler shows pending and approved doctors with counts
func (h *Handler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	requestLog(r).Msg("Dashboard requested")

	view, err := h.svc.Dashboard(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error loading admin dashboard")
		http.Error(w, "Error loading dashboard", http.StatusInternalServerError)
		return
	}
	h.renderView(w, r, pageDashboard, view, "Error loading dashboard")
}

// DoctorDetailsHandler returns one doctor for the details modal
func (h *Handler) DoctorDetailsHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["doctorid"]
	requestLog(r).Str("doctorid", doctorID).Msg("Doctor details requested")

	doctor, err := h.svc.DoctorDetail(r.Context(), doctorID)
	if errors.Is(err, admin.ErrNotFound) {
		failure(w, http.StatusNotFound, "Doctor not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("doctorid", doctorID).Msg("Error fetching doctor details")
		failure(w, http.StatusInternalServerError, "Error fetching doctor details")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"doctor":  doctor,
	})
}

// ApproveDoctorHandler approves a pending doctor
func (h *Handler) ApproveDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["doctorid"]
	requestLog(r).Str("doctorid", doctorID).Msg("Approve doctor requested")

	_, err := h.svc.ApproveDoctor(r.Context(), doctorID)
	if errors.Is(err, admin.ErrNotFound) {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("doctorid", doctorID).Msg("Error approving doctor")
		http.Error(w, "Error approving doctor", http.StatusInternalServerError)
		return
	}
	h.confirm(w, r, approvedConfirmation)
}

// RejectDoctorHandler deletes a pending doctor registration
func (h *Handler) RejectDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["doctorid"]
	requestLog(r).Str("doctorid", doctorID).Msg("Reject doctor requested")

	_, err := h.svc.RejectDoctor(r.Context(), doctorID)
	if errors.Is(err, admin.ErrNotFound) {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("doctorid", doctorID).Msg("Error while rejecting doctor")
		http.Error(w, "Error while rejecting doctor", http.StatusInternalServerError)
		return
	}
	h.confirm(w, r, rejectedConfirmation)
}

// ManageDoctorsHandler lists every doctor with status counts
func (h *Handler) ManageDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	requestLog(r).Msg("Manage doctors requested")

	view, err := h.svc.ManageDoctors(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error loading manage doctors page")
		http.Error(w, "Error loading page", http.StatusInternalServerError)
		return
	}
	h.renderView(w, r, pageManageDoctors, view, "Error loading page")
}

// RemoveDoctorHandler marks a doctor rejected without deleting it
func (h *Handler) RemoveDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["doctorid"]
	requestLog(r).Str("doctorid", doctorID).Msg("Remove doctor requested")

	_, err := h.svc.RemoveDoctor(r.Context(), doctorID)
	if errors.Is(err, admin.ErrNotFound) {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("doctorid", doctorID).Msg("Error removing doctor")
		http.Error(w, "Error removing doctor", http.StatusInternalServerError)
		return
	}
	h.confirm(w, r, removedConfirmation)
}

// DeleteDoctorHandler permanently deletes a doctor
func (h *Handler) DeleteDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["doctorid"]
	requestLog(r).Str("doctorid", doctorID).Msg("Delete doctor requested")

	if err := h.svc.DeleteDoctor(r.Context(), doctorID); err != nil {
		log.Error().Err(err).Str("doctorid", doctorID).Msg("Error deleting doctor")
		http.Error(w, "Error deleting doctor", http.StatusInternalServerError)
		return
	}
	h.confirm(w, r, doctorDeletedConfirmation)
}

// PatientsHandler lists patients newest first with verification counts
func (h *Handler) PatientsHandler(w http.ResponseWriter, r *http.Request) {
	requestLog(r).Msg("Patient records requested")

	view, err := h.svc.Patients(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error loading patient records page")
		http.Error(w, "Error loading patient records", http.StatusInternalServerError)
		return
	}
	h.renderView(w, r, pagePatients, view, "Error loading patient records")
}

// PatientDetailsHandler returns one patient for the details modal
func (h *Handler) PatientDetailsHandler(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]
	requestLog(r).Str("patientId", patientID).Msg("Patient details requested")

	patient, err := h.svc.PatientDetail(r.Context(), patientID)
	if errors.Is(err, admin.ErrNotFound) {
		failure(w, http.StatusNotFound, "Patient not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("patientId", patientID).Msg("Error fetching patient details")
		failure(w, http.StatusInternalServerError, "Error fetching patient details")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"patient": patient,
	})
}

// DeletePatientHandler permanently deletes a patient
func (h *Handler) DeletePatientHandler(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]
	requestLog(r).Str("patientId", patientID).Msg("Delete patient requested")

	if err := h.svc.DeletePatient(r.Context(), patientID); err != nil {
		log.Error().Err(err).Str("patientId", patientID).Msg("Error deleting patient")
		http.Error(w, "Error deleting patient", http.StatusInternalServerError)
		return
	}
	h.confirm(w, r, patientDeletedConfirmation)
}

// AppointmentsHandler lists all and recent appointments with counts
func (h *Handler) AppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	requestLog(r).Msg("Appointments requested")

	view, err := h.svc.Appointments(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error loading appointments page")
		http.Error(w, "Error loading appointments", http.StatusInternalServerError)
		return
	}
	h.renderView(w, r, pageAppointments, view, "Error loading appointments")
}

// AppointmentDetailsHandler returns an appointment and its doctor, if any
func (h *Handler) AppointmentDetailsHandler(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]
	requestLog(r).Str("appointmentId", appointmentID).Msg("Appointment details requested")

	detail, err := h.svc.AppointmentDetail(r.Context(), appointmentID)
	if errors.Is(err, admin.ErrNotFound) {
		failure(w, http.StatusNotFound, "Appointment not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("appointmentId", appointmentID).Msg("Error fetching appointment details")
		failure(w, http.StatusInternalServerError, "Error fetching appointment details")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"appointment": detail.Appointment,
		"doctor":      detail.Doctor,
	})
}

// DeleteAppointmentHandler permanently deletes an appointment
func (h *Handler) DeleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]
	requestLog(r).Str("appointmentId", appointmentID).Msg("Delete appointment requested")

	if err := h.svc.DeleteAppointment(r.Context(), appointmentID); err != nil {
		log.Error().Err(err).Str("appointmentId", appointmentID).Msg("Error deleting appointment")
		http.Error(w, "Error deleting appointment", http.StatusInternalServerError)
		return
	}
	h.confirm(w, r, appointmentDeletedConfirmation)
}

// StatusUpdateRequest is the body of an appointment status update
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// decodeStatusUpdate reads {status} from a JSON or form-encoded body
func decodeStatusUpdate(r *http.Request) (StatusUpdateRequest, error) {
	var req StatusUpdateRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("decode status update: %w", err)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, fmt.Errorf("parse status update form: %w", err)
	}
	req.Status = r.PostFormValue("status")
	return req, nil
}

// UpdateAppointmentStatusHandler sets a new appointment status
func (h *Handler) UpdateAppointmentStatusHandler(w http.ResponseWriter, r *http.Request) {
	appointmentID := mux.Vars(r)["appointmentId"]

	req, err := decodeStatusUpdate(r)
	if err != nil {
		log.Warn().Err(err).Str("appointmentId", appointmentID).Msg("Invalid status update body")
		failure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" && h.svc.Strict() {
		failure(w, http.StatusBadRequest, "Status is required")
		return
	}

	requestLog(r).Str("appointmentId", appointmentID).Str("status", req.Status).Msg("Appointment status update requested")

	updated, err := h.svc.UpdateAppointmentStatus(r.Context(), appointmentID, req.Status)
	var transitionErr *admin.TransitionError
	switch {
	case err == nil:
	case errors.Is(err, admin.ErrInvalidStatus):
		failure(w, http.StatusBadRequest, "Invalid appointment status")
		return
	case errors.As(err, &transitionErr):
		failure(w, http.StatusConflict, fmt.Sprintf("Invalid status transition from %s to %s", transitionErr.From, transitionErr.To))
		return
	case errors.Is(err, admin.ErrConflict):
		failure(w, http.StatusConflict, "Appointment was modified concurrently")
		return
	case errors.Is(err, admin.ErrNotFound):
		failure(w, http.StatusNotFound, "Appointment not found")
		return
	default:
		log.Error().Err(err).Str("appointmentId", appointmentID).Msg("Error updating appointment status")
		failure(w, http.StatusInternalServerError, "Error updating appointment status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "Appointment status updated to " + req.Status,
		"appointment": updated,
	})
}

// HealthHandler pings the store
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
