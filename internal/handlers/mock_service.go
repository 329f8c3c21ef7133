package handlers

import (
	"context"
	"sync"
	"time"

	"water_pump_monitor/internal/client"
	"water_pump_monitor/internal/models"
	"water_pump_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockControls struct {
	pressErr error
	pressed  []string
}

func (m *mockControls) Press(ctx context.Context, control string) error {
	m.pressed = append(m.pressed, control)
	return m.pressErr
}

func (m *mockControls) Available() []string {
	return client.Controls()
}

// mockMonitoring is read from the stream goroutine while tests update it.
type mockMonitoring struct {
	mu    sync.Mutex
	state service.DisplayState
	err   error
	calls int
}

func (m *mockMonitoring) Display(ctx context.Context) (service.DisplayState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.state, m.err
}

func (m *mockMonitoring) set(st service.DisplayState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = st
}

type mockEventLog struct {
	resp     []models.ClientEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ClientEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
