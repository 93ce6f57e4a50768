package sensor

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/controller"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/repository"
	"github.com/Ramdhani171024/uts-iot/internal/modules/sensor/service"
)

// RegisterFeature mounts the query routes and attaches the ingestion service
// to subscriber. The returned service also handles serial frames.
func RegisterFeature(
	mux *http.ServeMux,
	db *sql.DB,
	hub service.Broadcaster,
	subscriber service.MQTTSubscriber,
	opts service.Options,
	logger *slog.Logger,
	m *metrics.Metrics,
) *service.Service {
	sensorRepository := repository.NewRepository(db)

	sensorController := controller.NewSensorController(sensorRepository, logger)
	sensorController.RegisterRoutes(mux)

	sensorService := service.NewService(sensorRepository, hub, opts, logger, m)
	sensorService.RegisterMQTT(subscriber)
	return sensorService
}
