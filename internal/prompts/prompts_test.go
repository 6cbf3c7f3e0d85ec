package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareForCall_SubstitutesVariables(t *testing.T) {
	prompt := "Hello {{driver_name}}, calling about load {{load_number}}."

	got := prepareForCall(prompt, "Mike", "LD-4512")

	assert.Equal(t, "Hello Mike, calling about load LD-4512.", got)
}

func TestPrepareForCall_StripsUnknownPlaceholders(t *testing.T) {
	prompt := "Hello {{driver_name}}, your dispatcher is {{dispatcher_name}}. Load {{load_number}}."

	got := prepareForCall(prompt, "Mike", "LD-4512")

	assert.Equal(t, "Hello Mike, your dispatcher is . Load LD-4512.", got)
	assert.NotContains(t, got, "{{")
}

func TestPrepareForCall_RepeatedVariables(t *testing.T) {
	prompt := "{{driver_name}} on {{load_number}}; confirm {{load_number}} with {{driver_name}}."

	got := prepareForCall(prompt, "Sam", "LD-9")

	assert.Equal(t, "Sam on LD-9; confirm LD-9 with Sam.", got)
}

func TestExtractionUserPrompt_ContainsBothParts(t *testing.T) {
	got := ExtractionUserPrompt("routine check-in", "Agent: Hi\nUser: ok")

	assert.Contains(t, got, "routine check-in")
	assert.Contains(t, got, "Agent: Hi")
}

func TestGenerationUserPrompt_OmitsEmptyContext(t *testing.T) {
	assert.NotContains(t, GenerationUserPrompt("scenario", "  "), "Additional context")
	assert.Contains(t, GenerationUserPrompt("scenario", "fleet of 40 trucks"), "fleet of 40 trucks")
}
