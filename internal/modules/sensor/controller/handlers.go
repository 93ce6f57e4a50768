package controller

import (
	"net/http"

	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/validator"
	"github.com/Ramdhani171024/uts-iot/internal/utils"
)

type insertResponse struct {
	ID int64 `json:"id"`
}

func (c *sensorControllerImpl) handleList(w http.ResponseWriter, r *http.Request) {
	readings, err := c.repository.ListReadings(r.Context())
	if err != nil {
		c.logger.Error("list readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

// handleLatest answers {} when nothing has been stored yet.
func (c *sensorControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, ok, err := c.repository.GetLatestReading(r.Context())
	if err != nil {
		c.logger.Error("latest reading failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		utils.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	utils.WriteJSON(w, http.StatusOK, latest)
}

func (c *sensorControllerImpl) handleInsert(w http.ResponseWriter, r *http.Request) {
	body, err := utils.ReadBody(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	reading, err := validator.Decode(body)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := c.repository.InsertReading(r.Context(), reading)
	if err != nil {
		c.logger.Error("insert reading failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, insertResponse{ID: stored.ID})
}
