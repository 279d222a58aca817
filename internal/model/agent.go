package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// AgentStatus is the lifecycle status of an agent
type AgentStatus string

const (
	StatusTraining AgentStatus = "training"
	StatusActive   AgentStatus = "active"
	StatusInactive AgentStatus = "inactive"
)

// IsValid reports whether the status is one of the recognized lifecycle states
func (s AgentStatus) IsValid() bool {
	switch s {
	case StatusTraining, StatusActive, StatusInactive:
		return true
	}
	return false
}

// MaxTriggerWords is the upper bound on trigger phrase length
const MaxTriggerWords = 4

// recognizedActions is the set of capability flags an agent may be granted
var recognizedActions = map[string]bool{
	"answer_questions":  true,
	"capture_leads":     true,
	"send_documents":    true,
	"human_handoff":     true,
	"schedule_followup": true,
}

// IsValidAction reports whether name is a recognized capability flag
func IsValidAction(name string) bool {
	return recognizedActions[name]
}

// Agent represents a deployed conversational agent bound to a trigger phrase
type Agent struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	AgentID         string         `json:"agent_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	OrganizationID  uint           `json:"organization_id" gorm:"index;not null"`
	Name            string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Language        string         `json:"language" gorm:"type:varchar(50)"`
	Tone            string         `json:"tone" gorm:"type:varchar(50)"`
	PersonaPrompt   string         `json:"persona_prompt" gorm:"type:text"`
	TaskPrompt      string         `json:"task_prompt" gorm:"type:text"`
	TriggerCode     string         `json:"trigger_code" gorm:"type:varchar(100);uniqueIndex;not null"`
	AllowedActions  StringList     `json:"allowed_actions" gorm:"type:text"`
	ActivationQR    string         `json:"activation_qr" gorm:"type:text"` // data URI, empty when the activation step degraded
	GreetingMessage string         `json:"greeting_message" gorm:"type:text"`
	Status          AgentStatus    `json:"status" gorm:"type:varchar(20);default:training"`
	DocumentRefs    StringList     `json:"document_refs" gorm:"type:text"`
	SourceURLs      StringList     `json:"source_urls" gorm:"type:text"`
	ModelConfig     RouteConfig    `json:"model_config" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// NormalizeTriggerCode canonicalizes a trigger phrase: surrounding whitespace
// is trimmed, runs of whitespace collapse to single spaces, and the result is
// uppercased. Empty phrases and phrases longer than MaxTriggerWords are
// rejected rather than truncated, since truncation would silently change the
// text a channel user must type.
func NormalizeTriggerCode(raw string) (string, error) {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return "", fmt.Errorf("trigger phrase is required")
	}
	if len(words) > MaxTriggerWords {
		return "", fmt.Errorf("trigger phrase must be at most %d words, got %d", MaxTriggerWords, len(words))
	}
	return strings.ToUpper(strings.Join(words, " ")), nil
}

// ValidateActions checks every entry against the recognized capability flags
func ValidateActions(actions []string) error {
	for _, a := range actions {
		if !IsValidAction(a) {
			return fmt.Errorf("unrecognized capability flag %q", a)
		}
	}
	return nil
}
