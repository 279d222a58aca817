package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"agent-service/internal/catalog"
	"agent-service/internal/model"
	"agent-service/internal/provision"
	"agent-service/internal/repository"
	"agent-service/pkg/activation"
	"agent-service/pkg/ingest"
	"agent-service/pkg/jwtutil"
	"agent-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var (
	orchestrator     *provision.Orchestrator
	agentRepo        *repository.AgentRepository
	catalogReader    *catalog.Reader
	activationClient *activation.Client
	ingestClient     *ingest.Client
)

// Init wires the handlers to their collaborators
func Init(orc *provision.Orchestrator, repo *repository.AgentRepository, reader *catalog.Reader, act *activation.Client, ing *ingest.Client) {
	orchestrator = orc
	agentRepo = repo
	catalogReader = reader
	activationClient = act
	ingestClient = ing
}

// ownerFromContext returns the claims set by the auth middleware
func ownerFromContext(c echo.Context) (*jwtutil.OwnerClaims, bool) {
	claims, ok := c.Get("owner").(*jwtutil.OwnerClaims)
	return claims, ok
}

// DeployAgent handles the deploy operation: one organization draft plus one
// or more agent drafts, with optional knowledge-base documents attached as
// multipart files alongside a "payload" JSON field.
func DeployAgent(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := ownerFromContext(c)
	if !ok {
		log.Error("Failed to get owner claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	draft, err := bindDraft(c)
	if err != nil {
		log.Error("Failed to parse deploy request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	ctx := logger.WithContext(c.Request().Context(), log)
	result, err := orchestrator.Deploy(ctx, claims.OwnerID, *draft)
	if err != nil {
		return deployErrorResponse(c, log, err)
	}

	views := make([]catalog.AgentView, 0, len(result.Agents))
	for _, a := range result.Agents {
		views = append(views, catalog.ToView(a))
	}

	log.Info("Agent deploy succeeded",
		zap.String("org_id", result.Organization.OrgID),
		zap.Uint("owner_id", claims.OwnerID),
		zap.Int("agents", len(views)))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "Agent deployed successfully",
		"organization": result.Organization,
		"agents":       views,
	})
}

// bindDraft reads the deploy draft from either a plain JSON body or a
// multipart form carrying a JSON "payload" field plus "documents" files
func bindDraft(c echo.Context) (*provision.Draft, error) {
	var draft provision.Draft

	form, err := c.MultipartForm()
	if err != nil {
		// Not multipart: plain JSON draft with no documents attached.
		if err := c.Bind(&draft); err != nil {
			return nil, err
		}
		return &draft, nil
	}

	payloads := form.Value["payload"]
	if len(payloads) == 0 {
		return nil, errors.New("multipart deploy request is missing the payload field")
	}
	if err := json.Unmarshal([]byte(payloads[0]), &draft); err != nil {
		return nil, err
	}
	if len(draft.Agents) == 0 {
		return &draft, nil
	}

	// Documents attach to the first agent; the dashboard submits one agent
	// draft per deploy.
	for _, fh := range form.File["documents"] {
		doc, err := readDocument(fh)
		if err != nil {
			return nil, err
		}
		draft.Agents[0].Documents = append(draft.Agents[0].Documents, doc)
	}
	return &draft, nil
}

func readDocument(fh *multipart.FileHeader) (ingest.Document, error) {
	file, err := fh.Open()
	if err != nil {
		return ingest.Document{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return ingest.Document{}, err
	}
	return ingest.Document{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// deployErrorResponse maps the deploy error taxonomy to HTTP statuses
func deployErrorResponse(c echo.Context, log *zap.Logger, err error) error {
	var deployErr *provision.DeployError
	if !errors.As(err, &deployErr) {
		log.Error("Unexpected deploy failure", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "agent deployment failed"})
	}

	switch deployErr.Kind {
	case provision.KindValidation:
		log.Warn("Deploy rejected", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": deployErr.Error()})
	case provision.KindVendor:
		log.Error("Deploy failed at vendor", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": deployErr.Error()})
	default:
		log.Error("Deploy failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "agent deployment failed"})
	}
}

// ListAgents retrieves all agents owned by the caller, in catalog shape
func ListAgents(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := ownerFromContext(c)
	if !ok {
		log.Error("Failed to get owner claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	views, err := catalogReader.ListForOwner(c.Request().Context(), claims.OwnerID)
	if err != nil {
		log.Error("Failed to list agents", zap.Uint("owner_id", claims.OwnerID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve agents"})
	}

	return c.JSON(http.StatusOK, views)
}

// ListOrganizations retrieves every organization owned by the caller. Each
// deploy creates its own organization, so a long-lived owner accumulates
// several.
func ListOrganizations(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := ownerFromContext(c)
	if !ok {
		log.Error("Failed to get owner claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	orgs, err := agentRepo.ListOrganizationsForOwner(c.Request().Context(), claims.OwnerID)
	if err != nil {
		log.Error("Failed to list organizations", zap.Uint("owner_id", claims.OwnerID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve organizations"})
	}

	return c.JSON(http.StatusOK, orgs)
}

// GetAgent retrieves one agent by its business id. The id itself is the
// authorization token here: callers learn ids through the owner-scoped list.
func GetAgent(c echo.Context) error {
	log := logger.FromEcho(c)

	view, err := catalogReader.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "agent not found"})
		}
		log.Error("Failed to retrieve agent", zap.String("agent_id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve agent"})
	}

	return c.JSON(http.StatusOK, view)
}

// UpdateAgent rewrites an agent's full record from the configuration editor
func UpdateAgent(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := ownerFromContext(c)
	if !ok {
		log.Error("Failed to get owner claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	agent, _, status, errMsg := ownedAgent(c, claims.OwnerID)
	if agent == nil {
		return c.JSON(status, echo.Map{"error": errMsg})
	}

	var req provision.AgentDraft
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse agent update request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	trigger, err := model.NormalizeTriggerCode(req.TriggerCode)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := model.ValidateActions(req.AllowedActions); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	// An empty status keeps the agent's current lifecycle state.
	if req.Status != "" && !req.Status.IsValid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown agent status"})
	}

	// Full-record rewrite; the editor never patches individual fields.
	agent.Name = req.Name
	agent.Language = req.Language
	agent.Tone = req.Tone
	agent.PersonaPrompt = req.PersonaPrompt
	agent.TaskPrompt = req.TaskPrompt
	agent.TriggerCode = trigger
	agent.GreetingMessage = req.GreetingMessage
	agent.AllowedActions = model.StringList(req.AllowedActions)
	agent.SourceURLs = model.StringList(req.SourceURLs)
	agent.ModelConfig = req.ModelConfig
	if req.Status != "" {
		agent.Status = req.Status
	}

	if err := agentRepo.UpsertAgent(c.Request().Context(), agent); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "duplicate agent name or trigger phrase"})
		}
		log.Error("Failed to update agent", zap.String("agent_id", agent.AgentID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "agent update failed"})
	}

	log.Info("Agent updated", zap.String("agent_id", agent.AgentID), zap.Uint("owner_id", claims.OwnerID))
	view := catalog.ToView(agent)
	return c.JSON(http.StatusOK, view)
}

// RegenerateActivation requests a fresh activation image for an agent and
// persists it. The vendor call is idempotent, so this can run any number of
// times.
func RegenerateActivation(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := ownerFromContext(c)
	if !ok {
		log.Error("Failed to get owner claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	agent, _, status, errMsg := ownedAgent(c, claims.OwnerID)
	if agent == nil {
		return c.JSON(status, echo.Map{"error": errMsg})
	}

	result := activationClient.Request(c.Request().Context(), agent.AgentID, agent.Name, agent.TriggerCode)
	if result.Degraded {
		log.Warn("Activation regeneration degraded",
			zap.String("agent_id", agent.AgentID),
			zap.String("reason", result.Reason))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "activation service unavailable", "reason": result.Reason})
	}

	agent.ActivationQR = result.Payload
	if err := agentRepo.UpsertAgent(c.Request().Context(), agent); err != nil {
		log.Error("Failed to store activation image", zap.String("agent_id", agent.AgentID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store activation image"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"agent_id":      agent.AgentID,
		"activation_qr": agent.ActivationQR,
	})
}

// ownedAgent loads the agent in the :id parameter together with its parent
// organization and verifies the caller owns that organization. The lookup
// goes agent → organization, never owner → organization: an owner may hold
// several organizations, one per deploy.
func ownedAgent(c echo.Context, ownerID uint) (*model.Agent, *model.Organization, int, string) {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()

	agent, err := agentRepo.GetAgentByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, http.StatusNotFound, "agent not found"
		}
		log.Error("Failed to retrieve agent", zap.Error(err))
		return nil, nil, http.StatusInternalServerError, "failed to retrieve agent"
	}

	org, err := agentRepo.GetOrganizationByID(ctx, agent.OrganizationID)
	if err != nil {
		log.Error("Failed to resolve parent organization",
			zap.String("agent_id", agent.AgentID),
			zap.Error(err))
		return nil, nil, http.StatusInternalServerError, "failed to resolve organization"
	}
	if org.OwnerID != ownerID {
		log.Warn("Unauthorized agent access attempt",
			zap.Uint("owner_id", ownerID),
			zap.String("agent_id", agent.AgentID))
		return nil, nil, http.StatusForbidden, "access denied"
	}

	return agent, org, 0, ""
}
