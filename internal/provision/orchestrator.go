package provision

import (
	"context"
	"errors"
	"fmt"

	"agent-service/internal/model"
	"agent-service/internal/repository"
	"agent-service/pkg/activation"
	"agent-service/pkg/ingest"
	"agent-service/pkg/logger"
	"agent-service/prometheus"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the step cursor of one provisioning attempt
type State string

const (
	StateIdle                 State = "idle"
	StateRequestingActivation State = "requesting_activation"
	StateUploadingDocuments   State = "uploading_documents"
	StatePersisting           State = "persisting"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

// DocumentIngester uploads one knowledge-base document to the ingestion vendor
type DocumentIngester interface {
	Ingest(ctx context.Context, doc ingest.Document, agentID, organizationID string) (*ingest.IngestResult, error)
}

// ActivationRequester requests an activation image for an agent
type ActivationRequester interface {
	Request(ctx context.Context, agentID, agentName, triggerCode string) activation.Result
}

// OrganizationDraft is the caller-authored organization configuration
type OrganizationDraft struct {
	OrgID       string `json:"org_id"`
	Name        string `json:"name"`
	Website     string `json:"website"`
	Industry    string `json:"industry"`
	Description string `json:"description"`
}

// AgentDraft is the caller-authored agent configuration plus its attached
// knowledge-base documents
type AgentDraft struct {
	AgentID         string            `json:"agent_id"`
	Name            string            `json:"name"`
	Language        string            `json:"language"`
	Tone            string            `json:"tone"`
	PersonaPrompt   string            `json:"persona_prompt"`
	TaskPrompt      string            `json:"task_prompt"`
	TriggerCode     string            `json:"trigger_code"`
	GreetingMessage string            `json:"greeting_message"`
	AllowedActions  []string          `json:"allowed_actions"`
	SourceURLs      []string          `json:"source_urls"`
	ModelConfig     model.RouteConfig `json:"model_config"`
	// Status is honored by the configuration editor only; deploy always
	// starts agents in training.
	Status    model.AgentStatus `json:"status"`
	Documents []ingest.Document `json:"-"`
}

// Draft is the full input of one deploy call
type Draft struct {
	Organization OrganizationDraft `json:"organization"`
	Agents       []AgentDraft      `json:"agents"`
}

// Result is the committed outcome of a successful deploy
type Result struct {
	Organization *model.Organization
	Agents       []*model.Agent
}

// attempt holds the working state of one deploy call. It lives only for the
// duration of the call and is discarded afterwards.
type attempt struct {
	state    State
	org      *model.Organization
	agents   []*model.Agent
	uploaded []uploadOutcome
}

type uploadOutcome struct {
	agentIndex int
	ref        *ingest.IngestResult
}

func (a *attempt) advance(to State, log *zap.Logger) {
	log.Debug("Provisioning step", zap.String("from", string(a.state)), zap.String("to", string(to)))
	a.state = to
}

// Orchestrator sequences activation, document upload and persistence into a
// single deploy operation
type Orchestrator struct {
	ingester DocumentIngester
	codes    ActivationRequester
	repo     *repository.AgentRepository
}

// NewOrchestrator creates a provisioning orchestrator
func NewOrchestrator(ingester DocumentIngester, codes ActivationRequester, repo *repository.AgentRepository) *Orchestrator {
	return &Orchestrator{
		ingester: ingester,
		codes:    codes,
		repo:     repo,
	}
}

// Deploy runs one provisioning attempt for the given owner: activation
// requests (best effort), concurrent document uploads (gating), then one
// repository transaction. A failed attempt persists nothing, so the caller
// may resubmit the same draft; vendor-side artifacts of a failed attempt are
// not cleaned up, only logged.
func (o *Orchestrator) Deploy(ctx context.Context, ownerID uint, draft Draft) (*Result, error) {
	log := logger.FromContext(ctx)

	at := &attempt{state: StateIdle}
	if err := o.prepare(at, ownerID, draft); err != nil {
		prometheus.RecordDeployOutcome("validation_failed")
		return nil, err
	}

	at.advance(StateRequestingActivation, log)
	o.requestActivations(ctx, at, log)

	// Unconditional transition: a degraded activation never blocks progress.
	at.advance(StateUploadingDocuments, log)
	if err := o.uploadDocuments(ctx, at, draft, log); err != nil {
		at.advance(StateFailed, log)
		return nil, err
	}

	at.advance(StatePersisting, log)
	if err := o.repo.CreateOrganizationWithAgents(ctx, at.org, at.agents); err != nil {
		at.advance(StateFailed, log)
		o.logAbandonedUploads(at, log)
		if errors.Is(err, repository.ErrDuplicate) {
			prometheus.RecordDeployOutcome("duplicate_key")
			return nil, validationError("duplicate organization name, agent name or trigger phrase", err)
		}
		prometheus.RecordDeployOutcome("persistence_failed")
		return nil, persistenceError("failed to persist organization and agents", err)
	}

	at.advance(StateSucceeded, log)
	prometheus.RecordDeployOutcome("succeeded")
	log.Info("Provisioning attempt succeeded",
		zap.String("org_id", at.org.OrgID),
		zap.Int("agents", len(at.agents)))

	return &Result{Organization: at.org, Agents: at.agents}, nil
}

// prepare validates the draft and builds the working records. The
// caller-facing layer validates too; these are the orchestrator's own
// preconditions.
func (o *Orchestrator) prepare(at *attempt, ownerID uint, draft Draft) error {
	org := draft.Organization
	if org.Name == "" {
		return validationError("organization name is required", nil)
	}
	if org.Industry == "" {
		return validationError("organization industry is required", nil)
	}
	if len(draft.Agents) == 0 {
		return validationError("at least one agent is required", nil)
	}

	orgID := org.OrgID
	if orgID == "" {
		orgID = model.NewOrganizationID()
	}
	at.org = &model.Organization{
		OrgID:       orgID,
		Name:        org.Name,
		Website:     org.Website,
		Industry:    org.Industry,
		Description: org.Description,
		OwnerID:     ownerID,
		Active:      true,
	}

	for i, ad := range draft.Agents {
		if ad.Name == "" {
			return validationError(fmt.Sprintf("agent %d: name is required", i), nil)
		}
		trigger, err := model.NormalizeTriggerCode(ad.TriggerCode)
		if err != nil {
			return validationError(fmt.Sprintf("agent %q: invalid trigger phrase", ad.Name), err)
		}
		if err := model.ValidateActions(ad.AllowedActions); err != nil {
			return validationError(fmt.Sprintf("agent %q: invalid capability flags", ad.Name), err)
		}

		agentID := ad.AgentID
		if agentID == "" {
			agentID = model.NewAgentID()
		}
		at.agents = append(at.agents, &model.Agent{
			AgentID:         agentID,
			Name:            ad.Name,
			Language:        ad.Language,
			Tone:            ad.Tone,
			PersonaPrompt:   ad.PersonaPrompt,
			TaskPrompt:      ad.TaskPrompt,
			TriggerCode:     trigger,
			AllowedActions:  model.StringList(ad.AllowedActions),
			GreetingMessage: ad.GreetingMessage,
			Status:          model.StatusTraining,
			SourceURLs:      model.StringList(ad.SourceURLs),
			DocumentRefs:    model.StringList{},
			ModelConfig:     ad.ModelConfig,
		})
	}
	return nil
}

// requestActivations runs the best-effort activation step for every agent
func (o *Orchestrator) requestActivations(ctx context.Context, at *attempt, log *zap.Logger) {
	for _, agent := range at.agents {
		result := o.codes.Request(ctx, agent.AgentID, agent.Name, agent.TriggerCode)
		if result.Degraded {
			prometheus.RecordActivationDegraded()
			log.Warn("Activation request degraded, continuing without image",
				zap.String("agent_id", agent.AgentID),
				zap.String("reason", result.Reason))
			continue
		}
		agent.ActivationQR = result.Payload
	}
}

// uploadDocuments fans the attached documents out to the ingestion vendor
// concurrently and waits for all of them to settle. Any failure gates the
// whole deploy: persistence is skipped and the first error, identifying the
// failing document, is returned.
func (o *Orchestrator) uploadDocuments(ctx context.Context, at *attempt, draft Draft, log *zap.Logger) error {
	type slot struct {
		agentIndex int
		doc        ingest.Document
	}
	var slots []slot
	for ai, ad := range draft.Agents {
		for _, doc := range ad.Documents {
			slots = append(slots, slot{agentIndex: ai, doc: doc})
		}
	}
	if len(slots) == 0 {
		return nil
	}

	results := make([]*ingest.IngestResult, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range slots {
		i, s := i, s
		g.Go(func() error {
			agent := at.agents[s.agentIndex]
			ref, err := o.ingester.Ingest(gctx, s.doc, agent.AgentID, at.org.OrgID)
			if err != nil {
				prometheus.RecordDocumentUpload("failed")
				return fmt.Errorf("document %q: %w", s.doc.Name, err)
			}
			prometheus.RecordDocumentUpload("succeeded")
			results[i] = ref
			return nil
		})
	}

	err := g.Wait()

	// Record whatever uploads settled successfully, even on failure, so
	// abandoned vendor artifacts stay traceable.
	for i, ref := range results {
		if ref != nil {
			at.uploaded = append(at.uploaded, uploadOutcome{
				agentIndex: slots[i].agentIndex,
				ref:        ref,
			})
		}
	}

	if err != nil {
		o.logAbandonedUploads(at, log)
		if errors.Is(err, ingest.ErrInvalidDocument) {
			prometheus.RecordDeployOutcome("upload_rejected")
			return validationError("document rejected before upload", err)
		}
		prometheus.RecordDeployOutcome("upload_failed")
		return vendorError("document upload failed", err)
	}

	// Merge reference ids and resolved content URLs into the drafts,
	// preserving the original document order per agent.
	for _, u := range at.uploaded {
		agent := at.agents[u.agentIndex]
		agent.DocumentRefs = append(agent.DocumentRefs, u.ref.ReferenceID)
		if u.ref.ContentURL != "" {
			agent.SourceURLs = append(agent.SourceURLs, u.ref.ContentURL)
		}
	}
	return nil
}

// logAbandonedUploads records vendor artifacts left behind by a failed
// attempt. Neither vendor exposes a delete endpoint, so these are accepted
// as orphans rather than reconciled.
func (o *Orchestrator) logAbandonedUploads(at *attempt, log *zap.Logger) {
	for _, u := range at.uploaded {
		log.Warn("Abandoning ingested document from failed attempt",
			zap.String("org_id", at.org.OrgID),
			zap.String("agent_id", at.agents[u.agentIndex].AgentID),
			zap.String("reference_id", u.ref.ReferenceID))
	}
}
