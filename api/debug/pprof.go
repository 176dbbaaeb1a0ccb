package debug

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
)

func BindPprofEndpoints(rtr *mux.Router, secret string) {
	rtr.Handle("/debug/pprof/", pprofServe(pprof.Index, secret))
	rtr.Handle("/debug/pprof/allocs", pprofServe(pprof.Index, secret))
	rtr.Handle("/debug/pprof/block", pprofServe(pprof.Index, secret))
	rtr.Handle("/debug/pprof/goroutine", pprofServe(pprof.Index, secret))
	rtr.Handle("/debug/pprof/heap", pprofServe(pprof.Index, secret))
	rtr.Handle("/debug/pprof/mutex", pprofServe(pprof.Index, secret))
	rtr.Handle("/debug/pprof/profile", pprofServe(pprof.Profile, secret))
	rtr.Handle("/debug/pprof/trace", pprofServe(pprof.Trace, secret))
}

type generatorFn = func(w http.ResponseWriter, r *http.Request)

type requestContainer struct {
	secret string
	fn     generatorFn
}

func pprofServe(fn generatorFn, secret string) http.Handler {
	return &requestContainer{
		secret: secret,
		fn:     fn,
	}
}

func (c *requestContainer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != ("Bearer " + c.secret) {
		// Order is important: Set headers before sending responses
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusUnauthorized)

		encoder := json.NewEncoder(w)
		_ = encoder.Encode(&map[string]bool{"success": false})
		return
	}
	c.fn(w, r)
}
