package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{[^}]+\}\}`)

// prepareForCall substitutes the call-scoped variables into a system prompt
// and strips any placeholder that has no value for this call. On a live call
// the provider does this substitution itself from the dynamic variables.
func prepareForCall(systemPrompt, driverName, loadNumber string) string {
	prompt := strings.ReplaceAll(systemPrompt, "{{driver_name}}", driverName)
	prompt = strings.ReplaceAll(prompt, "{{load_number}}", loadNumber)
	return placeholderPattern.ReplaceAllString(prompt, "")
}

// ExtractionSystemPrompt is the fixed analytical instruction set for post-call
// structured-data extraction.
const ExtractionSystemPrompt = `You are an AI agent analyzing logistics dispatch call transcripts. Your task is to extract structured data from driver check-in conversations.

ANALYSIS INSTRUCTIONS:
1. Read the entire call transcript carefully
2. Identify what type of call this is based on the conversation content
3. Extract ALL relevant information discussed in the call
4. Return a JSON object containing only the data points that are relevant and mentioned
5. Use descriptive, clear keys for each data point
6. If a relevant data point was discussed but no clear answer was given, use null for that field
7. Do not include fields for information that was never discussed or referenced

GUIDELINES FOR EXTRACTION:

Call Classification:
- Determine if this is a routine status update, arrival confirmation, emergency situation, or other type
- Use a "call_outcome" field to categorize the call type

Driver Status & Location:
- Extract driver's current status (driving, arrived, unloading, delayed, etc.)
- Capture current location if mentioned
- Record estimated arrival time if discussed
- Note any delays and their reasons

Delivery Operations:
- Capture unloading status, door numbers, detention situations
- Note if proof of delivery reminders were acknowledged
- Record any operational issues or updates

Emergency Situations:
- If an emergency is mentioned, capture the emergency type (accident, breakdown, medical, etc.)
- Record safety status and whether anyone is injured
- Note the specific emergency location
- Indicate if the load is secure
- Document escalation actions (connecting to dispatcher, etc.)

DATA QUALITY RULES:
- Use clear, descriptive keys (snake_case preferred)
- Values should be concise but complete
- Use boolean true/false for yes/no questions that were clearly answered
- Use null only when a topic was discussed but the answer is unclear/not provided
- Use strings for descriptive information
- Keep location and status descriptions as provided by the driver
- Preserve specific details like door numbers, mile markers, times, etc.

OUTPUT FORMAT:
- Return ONLY valid JSON
- No explanations, preamble, or text outside the JSON
- Include only fields that are relevant to what was actually discussed
- Ensure proper JSON syntax (quoted keys, proper commas, etc.)

Extract the relevant structured data as JSON:`

// ExtractionUserPrompt assembles the scenario description and transcript into
// the user message for extraction.
func ExtractionUserPrompt(scenarioDescription, transcript string) string {
	return fmt.Sprintf("Scenario requirements:\n%s\n\nCall transcript:\n%s\n", scenarioDescription, transcript)
}

// GenerationSystemPrompt is the instruction set used to turn an operator's
// scenario description into a voice-agent system prompt. The only dynamic
// variables available at call time are {{driver_name}} and {{load_number}}.
const GenerationSystemPrompt = `You are an expert prompt engineer for conversational voice AI agents that make logistics dispatch check-in calls to truck drivers.

Given a scenario description, write a complete system prompt for a voice agent. Follow this methodology:

1. Requirements analysis
- Identify every conversation path the scenario implies: happy paths, exception paths, and priority-override situations such as emergencies
- The ONLY dynamic variables available are {{driver_name}} and {{load_number}}; never invent others

2. Data requirements
- For each path, list what information MUST be collected and what is optional
- In-transit calls need location, ETA, and delay reasons; arrived calls need dock/door numbers, unloading status, and proof-of-delivery acknowledgment
- Emergencies override everything: collect safety status, injuries, emergency type and location, load security, then escalate to a human dispatcher

3. Conversation design
- Open with a greeting using {{driver_name}}, reference {{load_number}}, and ask a broad open-ended question
- Questions should be open-ended where the answer drives branching, yes/no only for confirmations
- Keep the agent's turns short and natural for a phone call
- Close by summarizing what was collected and thanking the driver

Output ONLY the system prompt text, ready to be used verbatim. Do not add commentary before or after it.`

// GenerationUserPrompt assembles the scenario description and optional
// context for system-prompt generation.
func GenerationUserPrompt(scenarioDescription, additionalContext string) string {
	if strings.TrimSpace(additionalContext) == "" {
		return fmt.Sprintf("Scenario description:\n%s\n", scenarioDescription)
	}
	return fmt.Sprintf("Scenario description:\n%s\n\nAdditional context:\n%s\n", scenarioDescription, additionalContext)
}
