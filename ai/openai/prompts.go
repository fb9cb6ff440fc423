package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/tenderqa/core"
)

const keywordResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "filters": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "column": {
            "type": "string",
            "enum": ["locality", "region", "category", "start_date", "end_date"]
          },
          "value": {
            "type": "string"
          }
        },
        "required": ["column", "value"],
        "additionalProperties": false
      }
    }
  },
  "required": ["filters"],
  "additionalProperties": false
}`

const keywordPromptTemplate = `You map questions about public tenders to filters over a dataset.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Only use values that appear verbatim in the allowed values listed below.
- Pick a value only when the question mentions it or clearly refers to it (a misspelling, an abbreviation,
  a synonym of a category).
- Never invent values. If nothing applies, return "filters": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Allowed values:
%s

Example:
Input: "any road contracts near guntur?"
Output:
{
  "filters": [
    {"column":"locality","value":"guntur"},
    {"column":"category","value":"civil"}
  ]
}

Example:
Input: "what's the weather like"
Output:
{
  "filters": []
}`

// maxVocabularyValues caps how many values per column are listed in the prompt.
const maxVocabularyValues = 200

// buildKeywordPrompt creates the system prompt with the current vocabulary embedded.
func buildKeywordPrompt(vocabulary map[core.Column][]string) string {
	var b strings.Builder
	for _, col := range core.FilterColumns {
		values := vocabulary[col]
		if len(values) == 0 {
			continue
		}
		if len(values) > maxVocabularyValues {
			values = values[:maxVocabularyValues]
		}
		fmt.Fprintf(&b, "- %s: %s\n", col, strings.Join(values, "; "))
	}
	return fmt.Sprintf(keywordPromptTemplate, keywordResponseSchema, b.String())
}
