// Package debug serves a small JSON view of a running preloader, for poking at
// the simulation or an embedding app while it runs.
package debug

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/common"
	"github.com/t2bot/feed-preloader/common/config"
	"github.com/t2bot/feed-preloader/common/rcontext"
	"github.com/t2bot/feed-preloader/preloader"
	"github.com/t2bot/feed-preloader/util"
)

// Source is the read side of a preloader.Manager plus manual retries.
type Source interface {
	CurrentIndex() int
	GetStats() preloader.Stats
	GetItemStatuses() []preloader.ItemStatus
	GetLoadingStatus() map[string]bool
	GetLastError(url string) error
	RetryItem(url string) error
}

type route struct {
	method  string
	handler handler
}

type Server struct {
	source  Source
	cfg     config.MainConfig
	started time.Time

	lock sync.Mutex
	srv  *http.Server
}

func NewServer(source Source, cfg config.MainConfig) *Server {
	return &Server{
		source:  source,
		cfg:     cfg,
		started: time.Now(),
	}
}

func (s *Server) Router() *mux.Router {
	rtr := mux.NewRouter()
	counter := &requestCounter{}

	routes := map[string]route{
		"/debug/stats":       {"GET", handler{s.getStats, "stats", counter, s}},
		"/debug/items":       {"GET", handler{s.getItems, "items", counter, s}},
		"/debug/loading":     {"GET", handler{s.getLoading, "loading", counter, s}},
		"/debug/items/error": {"GET", handler{s.getLastError, "last_error", counter, s}},
		"/debug/items/retry": {"POST", handler{s.retryItem, "retry", counter, s}},
	}
	for routePath, route := range routes {
		logrus.Debug("Registering route: " + route.method + " " + routePath)
		rtr.Handle(routePath, route.handler).Methods(route.method)
	}
	rtr.Handle("/healthz", handler{healthz, "healthz", counter, s}).Methods("GET")

	rtr.NotFoundHandler = handler{notFound, "not_found", counter, s}
	rtr.MethodNotAllowedHandler = handler{methodNotAllowed, "method_not_allowed", counter, s}

	if secret := os.Getenv("FEED_PPROF_SECRET_KEY"); secret != "" {
		logrus.Warn("Enabling pprof/debug http endpoints")
		BindPprofEndpoints(rtr, secret)
	}
	return rtr
}

// Start listens on the configured address if the debug API is enabled.
func (s *Server) Start() {
	if !s.cfg.DebugApi.Enabled {
		logrus.Info("Debug API disabled")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	address := s.cfg.DebugApi.BindAddress + ":" + strconv.Itoa(s.cfg.DebugApi.Port)
	s.srv = &http.Server{Addr: address, Handler: s.Router()}
	srv := s.srv
	go func() {
		logrus.WithField("address", address).Info("Started debug API. Listening at http://" + address)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logrus.Error("Debug API stopped: ", err)
		}
	}()
}

func (s *Server) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logrus.Error("Error stopping debug API: ", err)
	}
	s.srv = nil
}

func healthz(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return &EmptyResponse{}
}

func notFound(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return NotFoundError()
}

func methodNotAllowed(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return MethodNotAllowed()
}

func (s *Server) getStats(r *http.Request, rctx rcontext.RequestContext) interface{} {
	stats := s.source.GetStats()
	return &StatsResponse{
		CurrentIndex: s.source.CurrentIndex(),
		Total:        stats.Total,
		Loaded:       stats.Loaded,
		Loading:      stats.Loading,
		Queued:       stats.Queued,
		Failed:       stats.Failed,
		CacheSize:    stats.CacheSize,
		Started:      humanize.Time(s.started),
	}
}

func (s *Server) getItems(r *http.Request, rctx rcontext.RequestContext) interface{} {
	statuses := s.source.GetItemStatuses()
	state := r.URL.Query().Get("state")

	items := make([]ItemResponse, 0, len(statuses))
	for _, st := range statuses {
		if state != "" && st.State != state {
			continue
		}
		item := ItemResponse{ItemStatus: st}
		if st.UpdatedTs > 0 {
			item.Updated = humanize.Time(util.FromMillis(st.UpdatedTs))
		}
		items = append(items, item)
	}
	return items
}

func (s *Server) getLoading(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return s.source.GetLoadingStatus()
}

func (s *Server) getLastError(r *http.Request, rctx rcontext.RequestContext) interface{} {
	url := r.URL.Query().Get("url")
	if url == "" {
		return BadRequest("url is required")
	}
	err := s.source.GetLastError(url)
	if err == nil {
		return NotFoundError()
	}
	return map[string]string{"url": url, "error": err.Error()}
}

func (s *Server) retryItem(r *http.Request, rctx rcontext.RequestContext) interface{} {
	url := r.URL.Query().Get("url")
	if url == "" {
		return BadRequest("url is required")
	}

	rctx.Log.WithField("url", url).Info("Manual retry requested")
	err := s.source.RetryItem(url)
	if errors.Is(err, common.ErrNotTracked) {
		return NotFoundError()
	} else if errors.Is(err, common.ErrManagerClosed) {
		return ManagerClosed()
	} else if err != nil {
		rctx.Log.Error(err)
		return InternalServerError("unable to retry item")
	}
	return &EmptyResponse{}
}
