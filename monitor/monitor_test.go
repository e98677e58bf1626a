package monitor

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/calvinmclean/dualstep/commands"
	"github.com/calvinmclean/dualstep/motion"
	"github.com/calvinmclean/dualstep/sim"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	c, err := sim.NewBoard(sim.DefaultResolution).NewController(motion.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error creating controller: %v", err)
	}

	s, err := New(commands.NewSession(c, log), log)
	if err != nil {
		t.Fatalf("unexpected error creating server: %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, http.NoBody)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestStatus(t *testing.T) {
	h := newTestServer(t).Router()

	w := do(t, h, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var status struct {
		Motors []struct {
			ID        string `json:"id"`
			Phase     string `json:"phase"`
			Direction string `json:"direction"`
		} `json:"motors"`
		Drift int64 `json:"drift"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &status)
	if err != nil {
		t.Fatalf("unexpected error decoding %s: %v", w.Body.String(), err)
	}

	if len(status.Motors) != 2 || status.Motors[1].ID != "Motor2" {
		t.Fatalf("unexpected motors: %+v", status.Motors)
	}
	if status.Motors[0].Phase != "STOPPED" || status.Motors[0].Direction != "FORWARD" {
		t.Errorf("unexpected motor state: %+v", status.Motors[0])
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode int
		expectedBody string
	}{
		{
			"Speed",
			`{"line": "SPEED:500"}`,
			http.StatusOK,
			`{"response":["OK SPEED BOTH 500"]}`,
		},
		{
			"ErrorResponse",
			`{"line": "M1:JUMP"}`,
			http.StatusOK,
			`"ERR unknown command: JUMP"`,
		},
		{
			"MissingLine",
			`{}`,
			http.StatusBadRequest,
			`{"status":"Invalid request.","error":"missing required field: line"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t).Router()

			w := do(t, h, http.MethodPost, "/command", tt.body)
			if w.Code != tt.expectedCode {
				t.Errorf("expected status %d, got %d", tt.expectedCode, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %s, got %s", tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	h := s.Router()

	_ = do(t, h, http.MethodPost, "/command", `{"line": "M1:SPEED:750"}`)
	_ = do(t, h, http.MethodPost, "/command", `{"line": "BAD"}`)
	s.ObserveDrift(motion.DriftAdvisory{Drift: 150, Position1: 150})

	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		`dualstep_motor_target_speed_steps_per_second{motor="Motor1"} 750`,
		`dualstep_motor_target_speed_steps_per_second{motor="Motor2"} 0`,
		`dualstep_motor_running{motor="Motor1"} 1`,
		`dualstep_commands_total 2`,
		`dualstep_command_errors_total 1`,
		`dualstep_drift_advisories_total 1`,
		`dualstep_sync_drift_steps 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %q", want)
		}
	}
}

func TestStats(t *testing.T) {
	h := newTestServer(t).Router()

	_ = do(t, h, http.MethodPost, "/command", `{"line": "STOP"}`)
	w := do(t, h, http.MethodGet, "/stats", "")

	expected := `{"commands":1,"responses":1,"errors":0}`
	if strings.TrimSpace(w.Body.String()) != expected {
		t.Errorf("expected %s, got %s", expected, w.Body.String())
	}
}
