package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/truckwell/dispatch-voice-service/pkg/logger"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.retellai.com"

// Client handles communication with the Retell API
type Client struct {
	BaseURL        string
	APIKey         string
	DefaultVoiceID string
	HTTPClient     *http.Client
}

// NewClient creates a new Retell API client
func NewClient(baseURL, apiKey, defaultVoiceID string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		DefaultVoiceID: defaultVoiceID,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// WebCall is the handle returned when a web call session is created.
type WebCall struct {
	CallID      string `json:"call_id"`
	AccessToken string `json:"access_token"`
	AgentID     string `json:"agent_id"`
}

// TranscriptTurn is one turn of the call transcript as reported by Retell.
type TranscriptTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CallDetails is the full call record fetched after a call has ended.
// CallAnalysis is kept raw; its shape varies between plan tiers and API
// versions, so callers normalize it themselves.
type CallDetails struct {
	CallID              string           `json:"call_id"`
	AgentID             string           `json:"agent_id"`
	CallStatus          string           `json:"call_status"`
	Transcript          string           `json:"transcript"`
	TranscriptObject    []TranscriptTurn `json:"transcript_object"`
	RecordingURL        string           `json:"recording_url"`
	DurationMs          *int64           `json:"duration_ms"`
	DisconnectionReason string           `json:"disconnection_reason"`
	CallAnalysis        json.RawMessage  `json:"call_analysis"`
}

// ProvisionedAgent is the provider-side identity of a newly created agent.
type ProvisionedAgent struct {
	AgentID   string
	AgentName string
	LLMID     string
}

type createLLMRequest struct {
	GeneralPrompt string        `json:"general_prompt"`
	BeginMessage  string        `json:"begin_message"`
	GeneralTools  []interface{} `json:"general_tools"`
	StartingState string        `json:"starting_state"`
	StartSpeaker  string        `json:"start_speaker"`
	States        []llmState    `json:"states"`
}

type llmState struct {
	Name  string        `json:"name"`
	Edges []interface{} `json:"edges"`
}

type createLLMResponse struct {
	LLMID string `json:"llm_id"`
}

type createAgentRequest struct {
	AgentName               string         `json:"agent_name"`
	VoiceID                 string         `json:"voice_id"`
	ResponseEngine          responseEngine `json:"response_engine"`
	EnableBackchannel       bool           `json:"enable_backchannel"`
	InterruptionSensitivity float64        `json:"interruption_sensitivity"`
	Responsiveness          float64        `json:"responsiveness"`
	AmbientSound            string         `json:"ambient_sound"`
	BackchannelFrequency    float64        `json:"backchannel_frequency"`
	BackchannelWords        []string       `json:"backchannel_words"`
	EndCallAfterSilenceMs   int            `json:"end_call_after_silence_ms"`
}

type responseEngine struct {
	Type  string `json:"type"`
	LLMID string `json:"llm_id"`
}

type createAgentResponse struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

type createWebCallRequest struct {
	AgentID                   string            `json:"agent_id"`
	Metadata                  map[string]string `json:"metadata,omitempty"`
	RetellLLMDynamicVariables map[string]string `json:"retell_llm_dynamic_variables,omitempty"`
}

// CreateAgent provisions a conversational agent: it creates a Retell LLM with
// the system prompt, creates an agent bound to that LLM, and publishes it.
func (c *Client) CreateAgent(ctx context.Context, name, systemPrompt, voiceID string) (*ProvisionedAgent, error) {
	if voiceID == "" {
		voiceID = c.DefaultVoiceID
	}

	var llmResp createLLMResponse
	llmReq := createLLMRequest{
		GeneralPrompt: systemPrompt,
		BeginMessage:  "Hello {{driver_name}}, this is dispatch calling about load {{load_number}}. How can I help you?",
		GeneralTools:  []interface{}{},
		StartingState: "default",
		StartSpeaker:  "agent",
		States:        []llmState{{Name: "default", Edges: []interface{}{}}},
	}
	if err := c.post(ctx, "/create-retell-llm", llmReq, &llmResp); err != nil {
		return nil, fmt.Errorf("failed to create retell llm: %w", err)
	}

	var agentResp createAgentResponse
	agentReq := createAgentRequest{
		AgentName:               name,
		VoiceID:                 voiceID,
		ResponseEngine:          responseEngine{Type: "retell-llm", LLMID: llmResp.LLMID},
		EnableBackchannel:       true,
		InterruptionSensitivity: 0.8,
		Responsiveness:          1,
		AmbientSound:            "coffee-shop",
		BackchannelFrequency:    0.9,
		BackchannelWords:        []string{"yeah", "uh-huh", "I see", "got it"},
		EndCallAfterSilenceMs:   30000,
	}
	if err := c.post(ctx, "/create-agent", agentReq, &agentResp); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	if err := c.post(ctx, "/publish-agent/"+agentResp.AgentID, struct{}{}, nil); err != nil {
		return nil, fmt.Errorf("failed to publish agent: %w", err)
	}

	logger.Base().Info("Provisioned Retell agent",
		zap.String("agent_id", agentResp.AgentID),
		zap.String("llm_id", llmResp.LLMID))

	return &ProvisionedAgent{
		AgentID:   agentResp.AgentID,
		AgentName: agentResp.AgentName,
		LLMID:     llmResp.LLMID,
	}, nil
}

// CreateWebCall creates a web call session for the given provider agent.
// The metadata travels opaquely for later correlation; the dynamic variables
// personalize the agent's prompt for this call.
func (c *Client) CreateWebCall(ctx context.Context, agentID string, metadata, dynamicVariables map[string]string) (*WebCall, error) {
	req := createWebCallRequest{
		AgentID:                   agentID,
		Metadata:                  metadata,
		RetellLLMDynamicVariables: dynamicVariables,
	}

	var call WebCall
	if err := c.post(ctx, "/v2/create-web-call", req, &call); err != nil {
		return nil, fmt.Errorf("failed to create web call: %w", err)
	}

	logger.Base().Info("Created Retell web call",
		zap.String("call_id", call.CallID),
		zap.String("agent_id", agentID))
	return &call, nil
}

// GetCall fetches the full call record for a call id.
func (c *Client) GetCall(ctx context.Context, callID string) (*CallDetails, error) {
	var details CallDetails
	if err := c.get(ctx, "/v2/get-call/"+callID, &details); err != nil {
		return nil, fmt.Errorf("failed to get call %s: %w", callID, err)
	}
	return &details, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Base().Error("Retell API error",
			zap.String("path", req.URL.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(bodyBytes)))
		return fmt.Errorf("retell API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil || len(bodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
