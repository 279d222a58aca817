package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-service/internal/model"
	"agent-service/prometheus"

	"gorm.io/gorm"
)

// ErrDuplicate marks a write rejected by a uniqueness constraint (trigger
// phrase, organization name or agent name). Callers surface it as a
// validation failure, not a server error.
var ErrDuplicate = errors.New("duplicate value")

// ErrNotFound marks a lookup that matched no row
var ErrNotFound = errors.New("not found")

// AgentRepository owns the persistence of organizations and their agents
type AgentRepository struct {
	db *gorm.DB
}

// NewAgentRepository creates a repository backed by the given database.
// The schema is assumed to be migrated already; the repository issues no DDL.
func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// CreateOrganizationWithAgents persists one organization and its agents in a
// single transaction. Either all rows commit or none do; any error rolls the
// whole write back.
func (r *AgentRepository) CreateOrganizationWithAgents(ctx context.Context, org *model.Organization, agents []*model.Agent) error {
	defer prometheus.TrackDBOperation("provision_insert")(time.Now())

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(org); result.Error != nil {
			return result.Error
		}
		for _, agent := range agents {
			agent.OrganizationID = org.ID
			if result := tx.Create(agent); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return err
	}
	return nil
}

// ListAgentsForOwner returns every agent whose parent organization belongs to
// the given owner. Agents of other owners are never visible here.
func (r *AgentRepository) ListAgentsForOwner(ctx context.Context, ownerID uint) ([]model.Agent, error) {
	defer prometheus.TrackDBOperation("list_agents")(time.Now())

	var agents []model.Agent
	result := r.db.WithContext(ctx).
		Joins("JOIN organizations ON organizations.id = agents.organization_id").
		Where("organizations.owner_id = ? AND organizations.deleted_at IS NULL", ownerID).
		Find(&agents)
	if result.Error != nil {
		return nil, result.Error
	}
	return agents, nil
}

// GetAgentByID looks an agent up by its opaque business id. Authorization is
// enforced earlier, at the list step.
func (r *AgentRepository) GetAgentByID(ctx context.Context, agentID string) (*model.Agent, error) {
	var agent model.Agent
	result := r.db.WithContext(ctx).Where("agent_id = ?", agentID).First(&agent)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: agent %s", ErrNotFound, agentID)
		}
		return nil, result.Error
	}
	return &agent, nil
}

// GetOrganizationByID returns an organization by its primary key. Used to
// resolve an agent's parent organization when checking ownership.
func (r *AgentRepository) GetOrganizationByID(ctx context.Context, id uint) (*model.Organization, error) {
	var org model.Organization
	result := r.db.WithContext(ctx).First(&org, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: organization %d", ErrNotFound, id)
		}
		return nil, result.Error
	}
	return &org, nil
}

// ListOrganizationsForOwner returns every organization the given owner has
// provisioned. Each deploy call creates one organization, so owners may hold
// several.
func (r *AgentRepository) ListOrganizationsForOwner(ctx context.Context, ownerID uint) ([]model.Organization, error) {
	var orgs []model.Organization
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&orgs)
	if result.Error != nil {
		return nil, result.Error
	}
	return orgs, nil
}

// UpsertAgent rewrites the full agent record. The configuration editor only
// ever submits complete records; fields are never patched individually.
func (r *AgentRepository) UpsertAgent(ctx context.Context, agent *model.Agent) error {
	defer prometheus.TrackDBOperation("upsert_agent")(time.Now())

	result := r.db.WithContext(ctx).Save(agent)
	if result.Error != nil {
		if isDuplicateError(result.Error) {
			return fmt.Errorf("%w: %v", ErrDuplicate, result.Error)
		}
		return result.Error
	}
	return nil
}

// isDuplicateError recognizes uniqueness violations across drivers. Postgres
// reports "duplicate key value violates unique constraint"; SQLite reports
// "UNIQUE constraint failed".
func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
