package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page templates
const (
	pageDashboard     = "dashboard.html"
	pageManageDoctors = "manage-doctors.html"
	pagePatients      = "patients.html"
	pageAppointments  = "appointments.html"
	pageConfirmation  = "confirmation.html"
)

// confirmationRedirect is how long confirmation pages wait before
// returning to their section
const confirmationRedirect = 3 * time.Second

type statCard struct {
	Label string
	Value int
}

var templateFuncs = template.FuncMap{
	"stat": func(label string, value int) statCard {
		return statCard{Label: label, Value: value}
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006 15:04")
	},
}

// Pages holds one parsed template set per page. Pages are parsed
// separately so each can define its own row partials.
type Pages struct {
	sets map[string]*template.Template
}

// LoadPages parses the embedded page templates
func LoadPages() (*Pages, error) {
	pages := &Pages{sets: make(map[string]*template.Template)}
	for _, page := range []string{pageDashboard, pageManageDoctors, pagePatients, pageAppointments, pageConfirmation} {
		set, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		pages.sets[page] = set
	}
	return pages, nil
}

func (p *Pages) render(page string, data any) ([]byte, error) {
	set, ok := p.sets[page]
	if !ok {
		return nil, fmt.Errorf("unknown page %s", page)
	}
	var buf bytes.Buffer
	if err := set.ExecuteTemplate(&buf, page, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", page, err)
	}
	return buf.Bytes(), nil
}

// Confirmation is the page shown after an admin action
type Confirmation struct {
	Title       string
	Heading     string
	Message     string
	ReturnURL   string
	ReturnLabel string
	Icon        string
	Tone        string
}

type confirmationPage struct {
	Confirmation
	RedirectMillis int64
}

var (
	approvedConfirmation = Confirmation{
		Title:       "Doctor Approved",
		Heading:     "Doctor Approved Successfully!",
		Message:     "The doctor has been approved and can now access the system.",
		ReturnURL:   AdminPrefix,
		ReturnLabel: "Return to Dashboard",
		Icon:        "fa-check",
		Tone:        "green",
	}
	rejectedConfirmation = Confirmation{
		Title:       "Doctor Rejected",
		Heading:     "Doctor Rejected",
		Message:     "The doctor application has been rejected and removed from the system.",
		ReturnURL:   AdminPrefix,
		ReturnLabel: "Return to Dashboard",
		Icon:        "fa-times",
		Tone:        "red",
	}
	removedConfirmation = Confirmation{
		Title:       "Doctor Removed",
		Heading:     "Doctor Removed",
		Message:     "The doctor has been marked as rejected and removed from active listings.",
		ReturnURL:   AdminPrefix + "/manage-doctors",
		ReturnLabel: "Return to Manage Doctors",
		Icon:        "fa-trash",
		Tone:        "red",
	}
	doctorDeletedConfirmation = Confirmation{
		Title:       "Doctor Deleted",
		Heading:     "Doctor Deleted",
		Message:     "The doctor has been permanently deleted from the system.",
		ReturnURL:   AdminPrefix + "/manage-doctors",
		ReturnLabel: "Return to Manage Doctors",
		Icon:        "fa-trash-alt",
		Tone:        "red",
	}
	patientDeletedConfirmation = Confirmation{
		Title:       "Patient Deleted",
		Heading:     "Patient Deleted",
		Message:     "The patient has been permanently deleted from the system.",
		ReturnURL:   AdminPrefix + "/patients",
		ReturnLabel: "Return to Patient Records",
		Icon:        "fa-trash",
		Tone:        "red",
	}
	appointmentDeletedConfirmation = Confirmation{
		Title:       "Appointment Deleted",
		Heading:     "Appointment Deleted",
		Message:     "The appointment has been permanently deleted from the system.",
		ReturnURL:   AdminPrefix + "/appointments",
		ReturnLabel: "Return to Appointments",
		Icon:        "fa-trash",
		Tone:        "red",
	}
)

// wantsJSON reports whether the client asked for JSON instead of HTML
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// failure answers {success:false, message}
func failure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
