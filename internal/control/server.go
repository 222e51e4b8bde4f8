// Package control exposes the playhead to the slider/time-readout UI.
package control

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"dispatch-replay/internal/sim"
)

// Playhead is the part of the replay the UI may read and move.
type Playhead interface {
	TimeWindow() sim.TimeWindow
	Now() float64
	Seek(t float64) float64
	FrameAt(t float64) sim.Frame
}

type clockResponse struct {
	Time  float64 `json:"time"`
	Clock string  `json:"clock"`
}

type seekRequest struct {
	Time *float64 `json:"time"`
}

type handler struct {
	playhead Playhead
}

// NewRouter wires the control routes:
//
//	GET  /window        slider bounds
//	GET  /clock         current playhead
//	POST /seek          move the playhead ({"time": m} or ?t=m)
//	GET  /frame         frame at the playhead, or at ?t=m without seeking
func NewRouter(p Playhead) *mux.Router {
	h := &handler{playhead: p}
	r := mux.NewRouter()
	r.HandleFunc("/window", h.window).Methods(http.MethodGet)
	r.HandleFunc("/clock", h.clock).Methods(http.MethodGet)
	r.HandleFunc("/seek", h.seek).Methods(http.MethodPost)
	r.HandleFunc("/frame", h.frame).Methods(http.MethodGet)
	return r
}

// NewServer builds the control http.Server on addr.
func NewServer(addr string, p Playhead) *http.Server {
	return &http.Server{
		Addr:         addr,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      NewRouter(p),
	}
}

func (h *handler) window(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.playhead.TimeWindow())
}

func (h *handler) clock(w http.ResponseWriter, _ *http.Request) {
	now := h.playhead.Now()
	writeJSON(w, http.StatusOK, clockResponse{Time: now, Clock: sim.FormatClock(now)})
}

func (h *handler) seek(w http.ResponseWriter, r *http.Request) {
	t, ok := queryTime(r)
	if !ok {
		var req seekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Time == nil {
			http.Error(w, "seek needs a numeric time", http.StatusBadRequest)
			return
		}
		t = *req.Time
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		http.Error(w, "seek needs a finite time", http.StatusBadRequest)
		return
	}
	now := h.playhead.Seek(t)
	writeJSON(w, http.StatusOK, clockResponse{Time: now, Clock: sim.FormatClock(now)})
}

func (h *handler) frame(w http.ResponseWriter, r *http.Request) {
	t, ok := queryTime(r)
	if !ok {
		if strings.TrimSpace(r.URL.Query().Get("t")) != "" {
			http.Error(w, "t must be numeric", http.StatusBadRequest)
			return
		}
		t = h.playhead.Now()
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		http.Error(w, "t must be finite", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.playhead.FrameAt(t))
}

func queryTime(r *http.Request) (float64, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("t"))
	if v == "" {
		return 0, false
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return t, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("control: marshal response error: %v", err)
		http.Error(w, "error serving request", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		log.Printf("control: write response error: %v", err)
	}
}
