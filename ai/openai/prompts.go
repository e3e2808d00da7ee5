package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/notewell/ai"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {
            "type": "string"
          },
          "type": {
            "type": "string"
          },
          "confidence": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          },
          "span_start": {
            "type": ["integer", "null"]
          },
          "span_end": {
            "type": ["integer", "null"]
          }
        },
        "required": ["text", "type", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract named entities from the given work note and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- The text field must contain the entity exactly as it appears in the note, including original casing.
- Type field must match exactly one of the listed values: %s.
- Confidence is a number from 0.0 (uncertain) to 1.0 (certain) reflecting how sure you are the span is a real entity of that type.
- span_start and span_end are character offsets of the mention within the note text. Use null for both when you cannot determine them.
- Include only entities that are explicitly mentioned in the note. Do not hallucinate.
- People are person. Initiatives, codenames, and deliverables are project. Tools, languages, frameworks, and services are technology. Companies and teams are organization. Topics and ideas are concept.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.



Example:
Input: "Met with Sarah Chen about the Apollo migration. She suggested we evaluate PostgreSQL."
Output:
{
  "entities": [
    {"text":"Sarah Chen","type":"person","confidence":0.95,"span_start":9,"span_end":19},
    {"text":"Apollo","type":"project","confidence":0.85,"span_start":30,"span_end":36},
    {"text":"PostgreSQL","type":"technology","confidence":0.95,"span_start":69,"span_end":79}
  ]
}

Example (informal, no offsets available):
Input: "pairing with john on the react rewrite again"
Output:
{
  "entities": [
    {"text":"john","type":"person","confidence":0.9,"span_start":null,"span_end":null},
    {"text":"react","type":"technology","confidence":0.85,"span_start":null,"span_end":null}
  ]
}

Example (nothing to extract):
Input: "long day, mostly meetings"
Output:
{
  "entities": []
}`

// buildSystemPrompt creates the system prompt with entity types embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(ai.EntityTypes, ", "))
}
