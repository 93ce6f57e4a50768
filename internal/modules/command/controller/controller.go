package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Ramdhani171024/uts-iot/internal/modules/command/service"
	"github.com/Ramdhani171024/uts-iot/internal/utils"
)

// Dispatcher is satisfied by *service.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, deviceID, action string) (string, error)
}

type CommandController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type commandControllerImpl struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewCommandController(dispatcher Dispatcher, logger *slog.Logger) CommandController {
	return &commandControllerImpl{dispatcher: dispatcher, logger: logger}
}

func (c *commandControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /cmd/{clientId}", c.handleCommand)
}

type commandResponse struct {
	SentTo string `json:"sentTo"`
	Action string `json:"action"`
}

func (c *commandControllerImpl) handleCommand(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("clientId")

	body, err := utils.ReadBody(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An empty or non-JSON body behaves like a missing action.
	var cmd service.Command
	if len(body) > 0 {
		if err := json.Unmarshal(body, &cmd); err != nil {
			utils.WriteError(w, http.StatusBadRequest, service.ErrMissingAction.Error())
			return
		}
	}

	topic, err := c.dispatcher.Dispatch(r.Context(), clientID, cmd.Action)
	switch {
	case errors.Is(err, service.ErrMissingAction), errors.Is(err, service.ErrInvalidDeviceID):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.WriteJSON(w, http.StatusOK, commandResponse{SentTo: topic, Action: cmd.Action})
}
