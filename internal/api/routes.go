package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"stealthcompany.com/medadmin/internal/metrics"
)

// RouterOptions configures SetupRoutes
type RouterOptions struct {
	// JWTSecret enables the admin token check when non-empty
	JWTSecret []byte
}

// SetupRoutes configures and returns the HTTP router. Admin routes are
// served both at the root and under /adminPage.
func SetupRoutes(h *Handler, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(metrics.MetricsMiddleware)
	if len(opts.JWTSecret) > 0 {
		r.Use(NewAuthMiddleware(opts.JWTSecret))
	}

	r.HandleFunc(HealthPath, h.HealthHandler).Methods(http.MethodGet)
	r.Handle(MetricsPath, metricsHandler()).Methods(http.MethodGet)

	r.HandleFunc(AdminPrefix, h.DashboardHandler).Methods(http.MethodGet)
	h.registerAdminRoutes(r.PathPrefix(AdminPrefix).Subrouter())
	h.registerAdminRoutes(r)

	return r
}

func (h *Handler) registerAdminRoutes(r *mux.Router) {
	r.HandleFunc("/", h.DashboardHandler).Methods(http.MethodGet)
	r.HandleFunc("/doctor-details/{doctorid}", h.DoctorDetailsHandler).Methods(http.MethodGet)
	r.HandleFunc("/approve-doctor/{doctorid}", h.ApproveDoctorHandler).Methods(http.MethodGet)
	r.HandleFunc("/reject-doctor/{doctorid}", h.RejectDoctorHandler).Methods(http.MethodGet)
	r.HandleFunc("/manage-doctors", h.ManageDoctorsHandler).Methods(http.MethodGet)
	r.HandleFunc("/remove-doctor/{doctorid}", h.RemoveDoctorHandler).Methods(http.MethodPost)
	r.HandleFunc("/delete-doctor/{doctorid}", h.DeleteDoctorHandler).Methods(http.MethodPost)

	r.HandleFunc("/patients", h.PatientsHandler).Methods(http.MethodGet)
	r.HandleFunc("/patient-details/{patientId}", h.PatientDetailsHandler).Methods(http.MethodGet)
	r.HandleFunc("/delete-patient/{patientId}", h.DeletePatientHandler).Methods(http.MethodPost)

	r.HandleFunc("/appointments", h.AppointmentsHandler).Methods(http.MethodGet)
	r.HandleFunc("/appointment-details/{appointmentId}", h.AppointmentDetailsHandler).Methods(http.MethodGet)
	r.HandleFunc("/delete-appointment/{appointmentId}", h.DeleteAppointmentHandler).Methods(http.MethodPost)
	r.HandleFunc("/update-appointment-status/{appointmentId}", h.UpdateAppointmentStatusHandler).Methods(http.MethodPost)
}

// metricsHandler serves the service registry, or 404 when metrics are off
func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registry := metrics.GetRegistry()
		if registry == nil {
			http.NotFound(w, r)
			return
		}
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
