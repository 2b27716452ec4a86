// Package monitoring serves an HTTP interface for watching and steering a
// running AutoTicker.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/monitoring/web"
	"github.com/sarchlab/frameticker/ticking"
)

// Controller is the part of an AutoTicker the monitor drives.
type Controller interface {
	Status() ticking.Status
	SetPaused(paused bool) error
	SetOnDemand(onDemand bool) error
}

// Executor runs a function on the goroutine that owns the ticker and waits
// for it. frame.Loop is an Executor.
type Executor interface {
	Do(ctx context.Context, fn func() error) error
}

// Monitor turns a ticker into a server and allows external monitoring and
// controlling of it.
type Monitor struct {
	ticker     Controller
	executor   Executor
	portNumber int
	log        *zap.Logger

	server *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{log: zap.NewNop()}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.Warn("monitor port not allowed, using a random port instead",
			zap.Int("port", portNumber))

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(log *zap.Logger) *Monitor {
	m.log = log
	return m
}

// WithExecutor makes every call into the ticker run through e.
func (m *Monitor) WithExecutor(e Executor) *Monitor {
	m.executor = e
	return m
}

// RegisterTicker registers the ticker to monitor.
func (m *Monitor) RegisterTicker(c Controller) {
	m.ticker = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the list shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the HTTP handler of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/status", m.status).Methods(http.MethodGet)
	r.HandleFunc("/api/ticker", m.tickerDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.resume).Methods(http.MethodPost)
	r.HandleFunc("/api/ondemand/{mode}", m.onDemand).Methods(http.MethodPost)
	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").
		MatcherFunc(notAPI).
		Handler(web.Handler())

	return r
}

// notAPI keeps the static files from answering unmatched API requests, so
// that they get a 404 or 405 from the router instead.
func notAPI(r *http.Request, _ *mux.RouteMatch) bool {
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

// StartServer starts serving in the background and returns the address it
// listens on.
func (m *Monitor) StartServer() (string, error) {
	addr := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("monitoring: failed to listen on %s: %w", addr, err)
	}

	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.log.Info("monitoring ticker", zap.String("url", url))

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("monitor server stopped", zap.Error(err))
		}
	}()

	return url, nil
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) run(ctx context.Context, fn func() error) error {
	if m.ticker == nil {
		return errNoTicker
	}

	if m.executor == nil {
		return fn()
	}

	return m.executor.Do(ctx, fn)
}

var errNoTicker = errors.New("monitoring: no ticker registered")

func (m *Monitor) currentStatus(ctx context.Context) (ticking.Status, error) {
	var status ticking.Status

	err := m.run(ctx, func() error {
		status = m.ticker.Status()
		return nil
	})

	return status, err
}

func (m *Monitor) status(w http.ResponseWriter, r *http.Request) {
	status, err := m.currentStatus(r.Context())
	if err != nil {
		m.fail(w, http.StatusServiceUnavailable, err)
		return
	}

	m.writeJSON(w, status)
}

func (m *Monitor) tickerDetails(w http.ResponseWriter, r *http.Request) {
	status, err := m.currentStatus(r.Context())
	if err != nil {
		m.fail(w, http.StatusServiceUnavailable, err)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&status)
	serializer.SetMaxDepth(1)

	if err := serializer.Serialize(w); err != nil {
		m.log.Error("failed to serialize ticker", zap.Error(err))
	}
}

func (m *Monitor) pause(w http.ResponseWriter, r *http.Request) {
	m.control(w, r, func() error { return m.ticker.SetPaused(true) })
}

func (m *Monitor) resume(w http.ResponseWriter, r *http.Request) {
	m.control(w, r, func() error { return m.ticker.SetPaused(false) })
}

func (m *Monitor) onDemand(w http.ResponseWriter, r *http.Request) {
	var onDemand bool

	switch mux.Vars(r)["mode"] {
	case "on", "true", "1":
		onDemand = true
	case "off", "false", "0":
		onDemand = false
	default:
		m.fail(w, http.StatusBadRequest,
			fmt.Errorf("monitoring: invalid mode %q", mux.Vars(r)["mode"]))
		return
	}

	m.control(w, r, func() error { return m.ticker.SetOnDemand(onDemand) })
}

func (m *Monitor) control(
	w http.ResponseWriter,
	r *http.Request,
	fn func() error,
) {
	if err := m.run(r.Context(), fn); err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.status(w, r)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressBarSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second

	if d := r.URL.Query().Get("duration"); d != "" {
		parsed, err := time.ParseDuration(d)
		if err != nil || parsed <= 0 {
			m.fail(w, http.StatusBadRequest,
				fmt.Errorf("monitoring: invalid duration %q", d))
			return
		}

		duration = parsed
	}

	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.fail(w, http.StatusConflict, err)
		return
	}

	select {
	case <-time.After(duration):
	case <-r.Context().Done():
	}

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.log.Error("failed to write response", zap.Error(err))
	}
}

func (m *Monitor) fail(w http.ResponseWriter, code int, err error) {
	m.log.Warn("monitor request failed",
		zap.Int("code", code), zap.Error(err))
	http.Error(w, err.Error(), code)
}
