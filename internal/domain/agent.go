package domain

import (
	"time"
)

// Agent represents a check-in scenario configuration. Prompts holds the
// operator-authored scenario description; SystemPrompt is the derived prompt
// actually sent to the voice provider; RetellAgentID is the provider-side
// agent identifier, empty until the agent has been provisioned.
type Agent struct {
	ID                string     `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	Name              string     `json:"name" gorm:"column:name"`
	Prompts           string     `json:"prompts" gorm:"column:prompts;type:text"`
	AdditionalDetails string     `json:"additional_details" gorm:"column:additional_details;type:text"`
	SystemPrompt      string     `json:"system_prompt" gorm:"column:system_prompt;type:text"`
	RetellAgentID     string     `json:"retell_agent_id" gorm:"column:retell_agent_id"`
	RetellLLMID       string     `json:"retell_llm_id" gorm:"column:retell_llm_id"`
	CreatedAt         time.Time  `json:"created_at" gorm:"column:created_at"`
	LastUsedAt        *time.Time `json:"last_used_at" gorm:"column:last_used_at"`
}

func (Agent) TableName() string {
	return "agents"
}

// IsProvisioned reports whether the agent exists on the voice-provider side.
func (a *Agent) IsProvisioned() bool {
	return a.RetellAgentID != ""
}

// Driver represents a truck driver the dispatch system can call.
type Driver struct {
	ID          string    `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"column:name"`
	PhoneNumber string    `json:"phone_number" gorm:"column:phone_number"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Driver) TableName() string {
	return "drivers"
}
