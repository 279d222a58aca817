package model

import "testing"

func TestNormalizeTriggerCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"lowercase with trailing space", "hello start now ", "HELLO START NOW", false},
		{"already normalized", "START", "START", false},
		{"internal whitespace collapsed", "start  now", "START NOW", false},
		{"four words allowed", "one two three four", "ONE TWO THREE FOUR", false},
		{"five words rejected", "one two three four five", "", true},
		{"empty rejected", "", "", true},
		{"whitespace only rejected", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTriggerCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeTriggerCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeTriggerCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateActions(t *testing.T) {
	if err := ValidateActions([]string{"answer_questions", "human_handoff"}); err != nil {
		t.Errorf("ValidateActions() with recognized flags returned %v", err)
	}
	if err := ValidateActions(nil); err != nil {
		t.Errorf("ValidateActions(nil) returned %v", err)
	}
	if err := ValidateActions([]string{"answer_questions", "launch_rockets"}); err == nil {
		t.Error("ValidateActions() with unrecognized flag succeeded, want error")
	}
}

func TestAgentStatus_IsValid(t *testing.T) {
	tests := []struct {
		status AgentStatus
		want   bool
	}{
		{StatusTraining, true},
		{StatusActive, true},
		{StatusInactive, true},
		{"", false},
		{"deployed", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("AgentStatus(%q).IsValid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}
