package utils

import (
	"encoding/json"
	"expvar"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Iteration records one model update.
type Iteration struct {
	StartTime  time.Time
	Duration   time.Duration
	Documents  int
	Perplexity float64
}

// Iterations tracks the updates of a training run.  It is safe for
// concurrent use and implements expvar.Var.
type Iterations struct {
	mu   sync.Mutex
	list []Iteration
}

func NewIterations() *Iterations {
	return &Iterations{}
}

// iterationJSON is the published form of an Iteration.  Perplexity is
// null when it is not a finite number, which JSON cannot represent.
type iterationJSON struct {
	Start      string   `json:"start"`
	DurationMS int64    `json:"duration_ms"`
	Documents  int      `json:"documents"`
	Perplexity *float64 `json:"perplexity"`
}

// String renders the iterations as a JSON array.
func (is *Iterations) String() string {
	is.mu.Lock()
	defer is.mu.Unlock()
	view := make([]iterationJSON, len(is.list))
	for i, iter := range is.list {
		view[i] = iterationJSON{
			Start:      iter.StartTime.Format(time.RFC3339),
			DurationMS: iter.Duration.Milliseconds(),
			Documents:  iter.Documents,
		}
		if p := iter.Perplexity; !math.IsNaN(p) && !math.IsInf(p, 0) {
			view[i].Perplexity = &p
		}
	}
	b, e := json.Marshal(view)
	if e != nil {
		glog.Errorf("Cannot encode iterations: %v", e)
		return "[]"
	}
	return string(b)
}

// Start opens a new iteration.
func (is *Iterations) Start() {
	is.mu.Lock()
	defer is.mu.Unlock()
	is.list = append(is.list, Iteration{StartTime: time.Now()})
}

// End closes the iteration opened by the last Start and returns it.
func (is *Iterations) End(documents int, perplexity float64) Iteration {
	is.mu.Lock()
	defer is.mu.Unlock()
	if len(is.list) == 0 {
		panic("Iterations.End called before Start")
	}
	i := &is.list[len(is.list)-1]
	i.Duration = time.Since(i.StartTime)
	i.Documents = documents
	i.Perplexity = perplexity
	return *i
}

func (is *Iterations) Len() int {
	is.mu.Lock()
	defer is.mu.Unlock()
	return len(is.list)
}

var (
	publishOnce sync.Once
	published   struct {
		sync.Mutex
		is *Iterations
	}
)

// EnableStatus publishes is as the expvar "iterations" and, if addr is
// not empty, serves /debug/vars on addr in the background.  It returns
// the address actually listened on.
func EnableStatus(addr string, is *Iterations) (string, error) {
	published.Lock()
	published.is = is
	published.Unlock()
	publishOnce.Do(func() {
		expvar.Publish("iterations", expvar.Func(func() interface{} {
			published.Lock()
			defer published.Unlock()
			return json.RawMessage(published.is.String())
		}))
	})
	if addr == "" {
		return "", nil
	}

	l, e := net.Listen("tcp", addr)
	if e != nil {
		return "", fmt.Errorf("cannot serve status on %s: %w", addr, e)
	}
	go func() {
		if e := http.Serve(l, nil); e != nil {
			glog.Warningf("Status server on %s stopped: %v", l.Addr(), e)
		}
	}()
	glog.Infof("Serving training status at http://%s/debug/vars", l.Addr())
	return l.Addr().String(), nil
}
