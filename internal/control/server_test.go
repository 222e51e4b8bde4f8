package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matryer/is"

	"dispatch-replay/internal/dispatch"
	"dispatch-replay/internal/sim"
)

type fakePlayhead struct {
	scene *sim.Scene
	now   float64
}

func (f *fakePlayhead) TimeWindow() sim.TimeWindow { return f.scene.Window }
func (f *fakePlayhead) Now() float64                { return f.now }
func (f *fakePlayhead) Seek(t float64) float64 {
	f.now = f.scene.Window.Clamp(t)
	return f.now
}
func (f *fakePlayhead) FrameAt(t float64) sim.Frame { return f.scene.Frame(t) }

func newFake() *fakePlayhead {
	ds := &dispatch.Dataset{Trips: []dispatch.Trip{{
		PassengerID: "p1",
		Route:       dispatch.Path{{0, 0}, {1, 1}, {2, 2}},
		Timestamp:   dispatch.Minutes{0, 10, 90},
	}}}
	return &fakePlayhead{scene: sim.NewScene(ds, sim.SceneOptions{})}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWindowAndClock(t *testing.T) {
	is := is.New(t)
	p := newFake()
	p.now = 65
	r := NewRouter(p)

	rec := do(t, r, http.MethodGet, "/window", "")
	is.Equal(rec.Code, http.StatusOK)
	var w sim.TimeWindow
	is.NoErr(json.Unmarshal(rec.Body.Bytes(), &w))
	is.Equal(w, sim.TimeWindow{Min: 0, Max: 90})

	rec = do(t, r, http.MethodGet, "/clock", "")
	is.Equal(rec.Code, http.StatusOK)
	var c clockResponse
	is.NoErr(json.Unmarshal(rec.Body.Bytes(), &c))
	is.Equal(c, clockResponse{Time: 65, Clock: "01:05"})
}

func TestSeek(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		body     string
		wantCode int
		wantNow  float64
	}{
		{name: "json body", target: "/seek", body: `{"time": 30}`, wantCode: http.StatusOK, wantNow: 30},
		{name: "query param", target: "/seek?t=45.5", wantCode: http.StatusOK, wantNow: 45.5},
		{name: "clamped to window", target: "/seek?t=500", wantCode: http.StatusOK, wantNow: 90},
		{name: "missing time", target: "/seek", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "not a number", target: "/seek?t=abc", wantCode: http.StatusBadRequest},
		{name: "NaN", target: "/seek?t=NaN", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			p := newFake()
			rec := do(t, NewRouter(p), http.MethodPost, tt.target, tt.body)
			is.Equal(rec.Code, tt.wantCode)
			if tt.wantCode != http.StatusOK {
				is.Equal(p.now, 0.0) // playhead untouched
				return
			}
			is.Equal(p.now, tt.wantNow)
		})
	}
}

func TestSeekRequiresPost(t *testing.T) {
	is := is.New(t)
	rec := do(t, NewRouter(newFake()), http.MethodGet, "/seek?t=5", "")
	is.Equal(rec.Code, http.StatusMethodNotAllowed)
}

func TestFrame(t *testing.T) {
	is := is.New(t)
	p := newFake()
	p.now = 5
	r := NewRouter(p)

	rec := do(t, r, http.MethodGet, "/frame", "")
	is.Equal(rec.Code, http.StatusOK)
	var f struct {
		Time         float64           `json:"time"`
		DispatchArcs []json.RawMessage `json:"dispatchArcs"`
		OccupiedArcs []json.RawMessage `json:"occupiedArcs"`
	}
	is.NoErr(json.Unmarshal(rec.Body.Bytes(), &f))
	is.Equal(f.Time, 5.0)
	is.Equal(len(f.DispatchArcs), 1)

	rec = do(t, r, http.MethodGet, "/frame?t=50", "")
	is.Equal(rec.Code, http.StatusOK)
	is.NoErr(json.Unmarshal(rec.Body.Bytes(), &f))
	is.Equal(f.Time, 50.0)
	is.Equal(len(f.OccupiedArcs), 1)
	is.Equal(p.now, 5.0) // previewing does not seek

	rec = do(t, r, http.MethodGet, "/frame?t=soon", "")
	is.Equal(rec.Code, http.StatusBadRequest)
}
