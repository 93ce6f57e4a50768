package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ramdhani171024/uts-iot/internal/logging"
	"github.com/Ramdhani171024/uts-iot/internal/metrics"
	"github.com/Ramdhani171024/uts-iot/internal/modules/command/service"
)

type stubPublisher struct {
	topics []string
	err    error
}

func (s *stubPublisher) Publish(topic string, _ []byte) error {
	if s.err != nil {
		return s.err
	}
	s.topics = append(s.topics, topic)
	return nil
}

func newMux(pub service.Publisher) *http.ServeMux {
	d := service.NewDispatcher(pub, "uts/iot", logging.Discard(), metrics.New())
	mux := http.NewServeMux()
	NewCommandController(d, logging.Discard()).RegisterRoutes(mux)
	return mux
}

func post(mux http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func Test_handleCommand(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		pubErr     error
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "sent",
			path:       "/cmd/esp32a",
			body:       `{"action":"ON"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"sentTo": "uts/iot/esp32a/cmd", "action": "ON"},
		},
		{name: "missing action", path: "/cmd/esp32a", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "empty body", path: "/cmd/esp32a", body: ``, wantStatus: http.StatusBadRequest},
		{name: "action not a string", path: "/cmd/esp32a", body: `{"action":1}`, wantStatus: http.StatusBadRequest},
		{name: "wildcard device", path: "/cmd/%2B", body: `{"action":"ON"}`, wantStatus: http.StatusBadRequest},
		{name: "broker unreachable", path: "/cmd/esp32a", body: `{"action":"ON"}`, pubErr: errors.New("mqtt client not connected"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &stubPublisher{err: tt.pubErr}
			rec := post(newMux(pub), tt.path, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d; want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var got map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("body is not valid JSON: %v", err)
			}
			if tt.wantBody != nil {
				if fmt.Sprint(got) != fmt.Sprint(tt.wantBody) {
					t.Errorf("body = %v; want %v", got, tt.wantBody)
				}
				return
			}
			if got["error"] == "" {
				t.Errorf("body %v has no error field", got)
			}
			if tt.pubErr == nil && len(pub.topics) != 0 {
				t.Errorf("published %v; want nothing", pub.topics)
			}
		})
	}
}

type ctxDispatcher struct{ gotCtx context.Context }

func (d *ctxDispatcher) Dispatch(ctx context.Context, deviceID, action string) (string, error) {
	d.gotCtx = ctx
	return "uts/iot/" + deviceID + "/cmd", nil
}

func Test_handleCommand_passesRequestContext(t *testing.T) {
	d := &ctxDispatcher{}
	mux := http.NewServeMux()
	NewCommandController(d, logging.Discard()).RegisterRoutes(mux)

	rec := post(mux, "/cmd/node1", `{"action":"RESET"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if d.gotCtx == nil {
		t.Error("dispatcher did not receive a context")
	}
}
