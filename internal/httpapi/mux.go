package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
)

// Deps are the collaborators the shared routes need. Nil MQTT reports
// "disconnected"; nil Serial reports "disabled"; nil Socket and Metrics
// leave those routes unmounted.
type Deps struct {
	DB        *sql.DB
	StaticDir string
	Socket    http.Handler
	Metrics   http.Handler
	MQTT      ConnectionChecker
	Serial    PortChecker
	Logger    *slog.Logger
}

func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, d)

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	if d.Socket != nil {
		mux.Handle("/socket.io/", d.Socket)
	}
	registerStatic(mux, d.StaticDir, d.Logger)
	return mux
}

func registerStatic(mux *http.ServeMux, dir string, logger *slog.Logger) {
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logger.Warn("static dir unavailable, not serving UI", "dir", dir, "error", err)
		return
	}
	mux.Handle("GET /", http.FileServer(http.Dir(dir)))
}
