package http

import (
	"log/slog"
	"net/http"
	"strings"
)

// RouterConfig lists the handlers and middleware mounted by NewRouter. Nil
// handlers leave their routes unregistered.
type RouterConfig struct {
	Schedules  *ScheduleHandler
	Conflicts  *ConflictHandler
	Health     *HealthHandler
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the HTTP handler tree. Middleware is applied in order, the
// first entry outermost.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Schedules != nil {
		mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Schedules.List(w, r)
			case http.MethodPost:
				cfg.Schedules.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/schedules/", func(w http.ResponseWriter, r *http.Request) {
			id, sub := splitResourcePath(r.URL.Path, "/schedules/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithEntryID(r.Context(), id))
			switch sub {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Schedules.Get(w, r)
				case http.MethodPut:
					cfg.Schedules.Update(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut)
				}
			case "conflicts":
				if cfg.Conflicts == nil {
					http.NotFound(w, r)
					return
				}
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Conflicts.ForEntry(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Conflicts != nil {
		resolve := RequireIdentity(cfg.Logger, cfg.Conflicts.Resolve)
		acknowledge := RequireIdentity(cfg.Logger, cfg.Conflicts.Acknowledge)
		ignore := RequireIdentity(cfg.Logger, cfg.Conflicts.Ignore)

		mux.HandleFunc("/conflicts-unresolved", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Conflicts.Unresolved(w, r)
		})
		mux.HandleFunc("/conflicts-check", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Conflicts.CheckAvailability(w, r)
		})
		mux.HandleFunc("/conflicts/", func(w http.ResponseWriter, r *http.Request) {
			id, action := splitResourcePath(r.URL.Path, "/conflicts/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithConflictID(r.Context(), id))
			if action == "" {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Conflicts.Get(w, r)
				return
			}

			var handler http.HandlerFunc
			switch action {
			case "resolve":
				handler = resolve
			case "acknowledge":
				handler = acknowledge
			case "ignore":
				handler = ignore
			default:
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			handler(w, r)
		})
	}

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Check(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

// splitResourcePath turns "/prefix/{id}/{sub}" into (id, sub). Deeper paths
// yield an empty id.
func splitResourcePath(path, prefix string) (string, string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return parts[0], ""
	case 2:
		return parts[0], parts[1]
	default:
		return "", ""
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
