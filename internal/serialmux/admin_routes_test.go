package serialmux

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/intersection.report/internal/testutil"
)

func TestAttachAdminRoutes_SendCommandAPI(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	tests := []struct {
		name           string
		method         string
		formData       url.Values
		expectedStatus int
	}{
		{"valid POST", http.MethodPost, url.Values{"command": {"status"}}, http.StatusOK},
		{"empty command", http.MethodPost, url.Values{"command": {"  "}}, http.StatusBadRequest},
		{"missing command", http.MethodPost, url.Values{}, http.StatusBadRequest},
		{"GET not allowed", http.MethodGet, nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.formData != nil {
				body = strings.NewReader(tt.formData.Encode())
			}
			req := testutil.LocalRequest(tt.method, "/debug/send-command-api", body)
			if tt.formData != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			w := httptest.NewRecorder()
			httpMux.ServeHTTP(w, req)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}

	if got := port.WrittenData(); got != "status\n" {
		t.Errorf("written = %q", got)
	}
}

func TestAttachAdminRoutes_PagesAndStatus(t *testing.T) {
	mux := NewSerialMux(NewTestSerialPort(`{"fps":15}` + "\n"))
	if err := mux.Monitor(context.Background()); err != nil {
		t.Fatal(err)
	}
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, testutil.LocalRequest(http.MethodGet, "/debug/send-command", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "tail.js") {
		t.Errorf("send-command page: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	httpMux.ServeHTTP(w, testutil.LocalRequest(http.MethodGet, "/debug/tail.js", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "EventSource") {
		t.Errorf("tail.js: %d", w.Code)
	}

	w = testutil.Serve(httpMux, testutil.LocalRequest(http.MethodGet, "/debug/detector-status", nil))
	body := testutil.DecodeJSON[DetectorStatus](t, w)
	if body.Status["fps"] != float64(15) || body.Dropped != 0 {
		t.Errorf("status = %+v", body)
	}
}

func TestAttachAdminRoutes_Tail(t *testing.T) {
	mux := NewSerialMux(NewTestSerialPort(""))
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	ctx, cancel := context.WithCancel(context.Background())
	req := testutil.LocalRequest(http.MethodGet, "/debug/tail", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		httpMux.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mux.handleLine(`{"frame":1,"tracker_id":3,"class":"car","confidence":0.7}`)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tail handler did not return")
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "event: detection\ndata: {\"frame\":1,\"tracker_id\":3") {
		t.Errorf("tail body = %q", w.Body.String())
	}
}

func TestAttachAdminRoutes_SendCommandWriteFailure(t *testing.T) {
	port := NewTestSerialPort("")
	port.writeErr = io.ErrClosedPipe
	httpMux := http.NewServeMux()
	NewSerialMux(port).AttachAdminRoutes(httpMux)

	req := testutil.LocalRequest(http.MethodPost, "/debug/send-command-api", strings.NewReader("command=status"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := testutil.Serve(httpMux, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadGateway)
}
