package debug

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/feed-preloader/common/rcontext"
	"github.com/t2bot/feed-preloader/metrics"
)

type requestCounter struct {
	lastId atomic.Uint64
}

func (c *requestCounter) GetNextId() string {
	return strconv.FormatUint(c.lastId.Add(1), 10)
}

type handler struct {
	h          func(r *http.Request, ctx rcontext.RequestContext) interface{}
	action     string
	reqCounter *requestCounter
	server     *Server
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	contextLog := logrus.WithFields(logrus.Fields{
		"method":     r.Method,
		"resource":   r.URL.Path,
		"requestId":  h.reqCounter.GetNextId(),
		"remoteAddr": r.RemoteAddr,
		"action":     h.action,
	})
	contextLog.Debug("Received request")

	rctx := rcontext.From(r.Context(), contextLog, h.server.cfg)
	r = r.WithContext(rctx)

	var res interface{}
	func() {
		defer func() {
			if p := recover(); p != nil {
				contextLog.Errorf("Panic handling request: %v", p)
				res = InternalServerError("unexpected error")
			}
		}()
		res = h.h(r, rctx)
	}()
	if res == nil {
		res = &EmptyResponse{}
	}
	contextLog.Debug(fmt.Sprintf("Replying with result: %T %+v", res, res))

	statusCode := http.StatusOK
	if result, ok := res.(*ErrorResponse); ok {
		switch result.Code {
		case ErrCodeNotFound:
			statusCode = http.StatusNotFound
		case ErrCodeBadRequest:
			statusCode = http.StatusBadRequest
		case ErrCodeMethod:
			statusCode = http.StatusMethodNotAllowed
		case ErrCodeClosed:
			statusCode = http.StatusServiceUnavailable
		default:
			statusCode = http.StatusInternalServerError
		}
	}

	metrics.DebugRequests.With(prometheus.Labels{
		"action":     h.action,
		"method":     r.Method,
		"statusCode": strconv.Itoa(statusCode),
	}).Inc()

	// Order is important: Set headers before sending responses
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(res); err != nil {
		contextLog.Error("Error writing response: ", err)
	}
}
