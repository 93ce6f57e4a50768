package command

import (
	"log/slog"
	"net/http"

	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/modules/command/controller"
	"github.com/Ramdhani171024/uts-iot/internal/modules/command/service"
)

func RegisterFeature(mux *http.ServeMux, publisher service.Publisher, topicPrefix string, logger *slog.Logger, m *metrics.Metrics) {
	dispatcher := service.NewDispatcher(publisher, topicPrefix, logger, m)
	commandController := controller.NewCommandController(dispatcher, logger)
	commandController.RegisterRoutes(mux)
}
