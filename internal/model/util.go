package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NewOrganizationID generates an opaque business id for an organization
func NewOrganizationID() string {
	return fmt.Sprintf("org_%s", uuid.New().String())
}

// NewAgentID generates an opaque business id for an agent
func NewAgentID() string {
	return fmt.Sprintf("agent_%s", uuid.New().String())
}
