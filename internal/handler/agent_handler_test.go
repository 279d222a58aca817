package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agent-service/internal/catalog"
	"agent-service/internal/model"
	"agent-service/internal/repository"
	"agent-service/pkg/jwtutil"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newHandlerRepo(t *testing.T) *repository.AgentRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}

	// A pooled :memory: connection is a separate database; pin to one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting database object: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Organization{}, &model.Agent{}); err != nil {
		t.Fatalf("migrating models: %v", err)
	}
	return repository.NewAgentRepository(db)
}

// deployFor seeds one organization with one agent, the shape a successful
// deploy leaves behind.
func deployFor(t *testing.T, repo *repository.AgentRepository, ownerID uint, orgName, agentName, trigger string) *model.Agent {
	t.Helper()

	org := &model.Organization{
		OrgID:   model.NewOrganizationID(),
		Name:    orgName,
		OwnerID: ownerID,
		Active:  true,
	}
	agent := &model.Agent{
		AgentID:     model.NewAgentID(),
		Name:        agentName,
		Language:    "English",
		Tone:        "Formal",
		TriggerCode: trigger,
		Status:      model.StatusTraining,
	}
	if err := repo.CreateOrganizationWithAgents(context.Background(), org, []*model.Agent{agent}); err != nil {
		t.Fatalf("seeding %s/%s: %v", orgName, agentName, err)
	}
	return agent
}

func updateContext(e *echo.Echo, agentID string, ownerID uint, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPut, "/agents/"+agentID, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/agents/:id")
	c.SetParamNames("id")
	c.SetParamValues(agentID)
	c.Set("owner", &jwtutil.OwnerClaims{OwnerID: ownerID})
	return c, rec
}

func TestUpdateAgent_OwnerWithTwoOrganizations(t *testing.T) {
	repo := newHandlerRepo(t)
	Init(nil, repo, catalog.NewReader(repo), nil, nil)
	e := echo.New()

	deployFor(t, repo, 1, "Acme", "Bot1", "START ONE")
	second := deployFor(t, repo, 1, "Globex", "Bot2", "START TWO")

	// Editing an agent in the owner's second organization must not be
	// mistaken for a cross-tenant access.
	c, rec := updateContext(e, second.AgentID, 1, `{"name":"Bot2","trigger_code":"START TWO","language":"Spanish"}`)
	if err := UpdateAgent(c); err != nil {
		t.Fatalf("UpdateAgent() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	got, err := repo.GetAgentByID(context.Background(), second.AgentID)
	if err != nil {
		t.Fatalf("GetAgentByID() error = %v", err)
	}
	if got.Language != "Spanish" {
		t.Errorf("Language = %q, want %q", got.Language, "Spanish")
	}
	if got.Status != model.StatusTraining {
		t.Errorf("Status = %q, want %q after update without a status", got.Status, model.StatusTraining)
	}
}

func TestUpdateAgent_ForeignOwnerDenied(t *testing.T) {
	repo := newHandlerRepo(t)
	Init(nil, repo, catalog.NewReader(repo), nil, nil)
	e := echo.New()

	agent := deployFor(t, repo, 1, "Acme", "Bot1", "START ONE")

	c, rec := updateContext(e, agent.AgentID, 2, `{"name":"Hijack","trigger_code":"GO"}`)
	if err := UpdateAgent(c); err != nil {
		t.Fatalf("UpdateAgent() error = %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	got, err := repo.GetAgentByID(context.Background(), agent.AgentID)
	if err != nil {
		t.Fatalf("GetAgentByID() error = %v", err)
	}
	if got.Name != "Bot1" {
		t.Errorf("Name = %q, want %q (record must be untouched)", got.Name, "Bot1")
	}
}

func TestUpdateAgent_StatusTransition(t *testing.T) {
	repo := newHandlerRepo(t)
	Init(nil, repo, catalog.NewReader(repo), nil, nil)
	e := echo.New()

	agent := deployFor(t, repo, 1, "Acme", "Bot1", "START ONE")

	c, rec := updateContext(e, agent.AgentID, 1, `{"name":"Bot1","trigger_code":"START ONE","status":"active"}`)
	if err := UpdateAgent(c); err != nil {
		t.Fatalf("UpdateAgent() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var view catalog.AgentView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if view.Status != model.StatusActive {
		t.Errorf("response status = %q, want %q", view.Status, model.StatusActive)
	}

	got, err := repo.GetAgentByID(context.Background(), agent.AgentID)
	if err != nil {
		t.Fatalf("GetAgentByID() error = %v", err)
	}
	if got.Status != model.StatusActive {
		t.Errorf("stored status = %q, want %q", got.Status, model.StatusActive)
	}
}

func TestUpdateAgent_UnknownStatusRejected(t *testing.T) {
	repo := newHandlerRepo(t)
	Init(nil, repo, catalog.NewReader(repo), nil, nil)
	e := echo.New()

	agent := deployFor(t, repo, 1, "Acme", "Bot1", "START ONE")

	c, rec := updateContext(e, agent.AgentID, 1, `{"name":"Bot1","trigger_code":"START ONE","status":"launched"}`)
	if err := UpdateAgent(c); err != nil {
		t.Fatalf("UpdateAgent() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	got, err := repo.GetAgentByID(context.Background(), agent.AgentID)
	if err != nil {
		t.Fatalf("GetAgentByID() error = %v", err)
	}
	if got.Status != model.StatusTraining {
		t.Errorf("stored status = %q, want %q", got.Status, model.StatusTraining)
	}
}
