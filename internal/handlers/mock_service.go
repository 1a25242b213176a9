package handlers

import (
	"context"
	"net/http"
	"time"

	"smart_heating/internal/models"
	"smart_heating/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockHeating struct {
	setOverrideErr   error
	resetOverrideErr error

	lastOverrideRoom     string
	lastOverrideMode     string
	lastOverrideDuration *int
	lastResetRoom        string
	setOverrideCalls     int
	resetOverrideCalls   int
	refreshCalls         int
}

func (m *mockHeating) SetOverride(ctx context.Context, roomID, mode string, durationMin *int) error {
	m.setOverrideCalls++
	m.lastOverrideRoom = roomID
	m.lastOverrideMode = mode
	m.lastOverrideDuration = durationMin
	return m.setOverrideErr
}
func (m *mockHeating) ResetOverride(ctx context.Context, roomID string) error {
	m.resetOverrideCalls++
	m.lastResetRoom = roomID
	return m.resetOverrideErr
}
func (m *mockHeating) RequestRefresh() {
	m.refreshCalls++
}

type mockMonitoring struct {
	snap    models.HouseSnapshot
	hasSnap bool
}

func (m *mockMonitoring) Snapshot() (models.HouseSnapshot, bool) {
	return m.snap, m.hasSnap
}
func (m *mockMonitoring) Room(roomID string) (models.RoomDecision, bool) {
	if !m.hasSnap {
		return models.RoomDecision{}, false
	}
	d, ok := m.snap.Rooms[roomID]
	return d, ok
}

type mockLearning struct {
	stats map[string]models.LearningStats
}

func (m *mockLearning) Stats(roomID string) models.LearningStats {
	return m.stats[roomID]
}

type mockEventLog struct {
	resp     []models.HeatingEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.HeatingEvent, error) {
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

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
