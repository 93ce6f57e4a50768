package controller

import (
	"log/slog"
	"net/http"

	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/repository"
)

type SensorController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type sensorControllerImpl struct {
	repository repository.SensorRepository
	logger     *slog.Logger
}

func NewSensorController(repository repository.SensorRepository, logger *slog.Logger) SensorController {
	return &sensorControllerImpl{repository: repository, logger: logger}
}

func (c *sensorControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /data_sensor", c.handleList)
	mux.HandleFunc("GET /data_sensor/latest", c.handleLatest)
	mux.HandleFunc("POST /data_sensor", c.handleInsert)
}
