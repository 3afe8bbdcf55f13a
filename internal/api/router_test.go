package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fight-club/internal/session"
	"fight-club/internal/walls"
)

type noopHandler struct{}

func (noopHandler) OnConnect(*session.Session)           {}
func (noopHandler) OnReady(*session.Session)             {}
func (noopHandler) OnSelectMode(*session.Session, uint8) {}
func (noopHandler) OnDisconnect(*session.Session)        {}

func TestHealthzReturnsOK(t *testing.T) {
	sessions := session.NewServer(session.DefaultConfig(), noopHandler{})
	rt := NewRouter(sessions, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestDebugWallsReportsCellAndLinkCounts(t *testing.T) {
	sessions := session.NewServer(session.DefaultConfig(), noopHandler{})
	w := walls.NewGrid(32, 320, 320)
	w.AddWall(1, 1, false)
	w.AddWall(1, 2, false) // adjacent to (1,1)
	w.AddWall(5, 5, false) // isolated
	rt := NewRouter(sessions, w)

	req := httptest.NewRequest(http.MethodGet, "/debug/walls", nil)
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != `{"cells":3,"linked":2}`+"\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestDebugSnapshotReportsSessionCount(t *testing.T) {
	sessions := session.NewServer(session.DefaultConfig(), noopHandler{})
	rt := NewRouter(sessions, nil)

	req := httptest.NewRequest(http.MethodGet, "/debug/snapshot", nil)
	rec := httptest.NewRecorder()
	rt.Handler().ServeHTTP(rec, req)

	if body := rec.Body.String(); body != `{"sessions":0}`+"\n" {
		t.Fatalf("body = %q", body)
	}
}
