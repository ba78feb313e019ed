package runtime

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/ekuiter/variED-NG/contract"
)

//go:embed home.html
var homeFS embed.FS

// NewMux assembles the HTTP surface: the informational page at /, the
// websocket endpoint under /socket/ and an administrative shutdown
// trigger. stop requests a graceful process stop.
func NewMux(log *slog.Logger, socket *SocketServer, stats contract.StatsProvider, stop func()) *http.ServeMux {
	page := template.Must(template.ParseFS(homeFS, "home.html"))

	mux := http.NewServeMux()
	mux.HandleFunc("/socket/", socket.Handle)
	mux.HandleFunc("/socket", socket.Handle)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.Execute(w, stats()); err != nil {
			log.Error("rendering info page", "err", err)
		}
	})

	mux.HandleFunc("/shutdown", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		log.Info("shutdown requested", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("stopping\n"))
		stop()
	})

	return mux
}
