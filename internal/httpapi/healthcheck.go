package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Ramdhani171024/uts-iot/internal/utils"
)

// ConnectionChecker is satisfied by *mqtt.Client.
type ConnectionChecker interface {
	IsConnected() bool
}

// PortChecker is satisfied by *serial.Listener.
type PortChecker interface {
	IsOpen() bool
}

type healthResponse struct {
	Status string `json:"status"`
	MQTT   string `json:"mqtt"`
	Serial string `json:"serial"`
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db     *sql.DB
	mqtt   ConnectionChecker
	serial PortChecker
	logger *slog.Logger
}

func NewHealthchecker(db *sql.DB, mqtt ConnectionChecker, serial PortChecker, logger *slog.Logger) healthchecker {
	return &healthcheckerImpl{db: db, mqtt: mqtt, serial: serial, logger: logger}
}

// handleHealthz fails only on the database. Transport state is informational.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		h.logger.Error("failed to check database connectivity", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}

	resp := healthResponse{Status: "ok", MQTT: "disconnected", Serial: "disabled"}
	if h.mqtt != nil && h.mqtt.IsConnected() {
		resp.MQTT = "connected"
	}
	if h.serial != nil {
		resp.Serial = "closed"
		if h.serial.IsOpen() {
			resp.Serial = "open"
		}
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func registerHealthcheck(mux *http.ServeMux, d Deps) {
	healthchecker := NewHealthchecker(d.DB, d.MQTT, d.Serial, d.Logger)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
