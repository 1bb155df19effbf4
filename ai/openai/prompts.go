package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/verdict/ai"
)

const ruleResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "rule_text": {
            "type": "string"
          },
          "category": {
            "type": "string"
          },
          "severity": {
            "type": "string",
            "enum": ["low", "medium", "high", "critical"]
          }
        },
        "required": ["rule_text", "category", "severity"],
        "additionalProperties": false
      }
    }
  },
  "required": ["rules"],
  "additionalProperties": false
}`

const rulePromptTemplate = `You are a compliance analyst. Extract every concrete compliance requirement stated in the given policy text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- rule_text must restate one requirement as a single, self-contained imperative sentence. It must be understandable without the surrounding text.
- category should be one of: %s. Use "general" when no listed category fits.
- severity reflects the impact of violating the requirement: "low", "medium", "high", or "critical".
- Extract only requirements the text actually states or clearly mandates. Do not invent requirements.
- Background, definitions, and descriptive prose are not requirements; skip them.
- If the text states no requirements, return "rules": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "All production database access must be logged. Logs shall be retained for at least 90 days."
Output:
{
  "rules": [
    {"rule_text":"All production database access must be logged.","category":"audit_logging","severity":"high"},
    {"rule_text":"Access logs must be retained for at least 90 days.","category":"data_retention","severity":"medium"}
  ]
}`

const violationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "violations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "rule_id": {
            "type": "integer"
          },
          "explanation": {
            "type": "string"
          },
          "severity": {
            "type": "string",
            "enum": ["low", "medium", "high", "critical"]
          }
        },
        "required": ["rule_id", "explanation", "severity"],
        "additionalProperties": false
      }
    }
  },
  "required": ["violations"],
  "additionalProperties": false
}`

const violationPromptTemplate = `You are a compliance auditor. You are given an excerpt from an audit document and a numbered list of compliance rules. Determine which rules the excerpt violates and return the violations as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Report a violation ONLY when the excerpt describes behavior, state, or evidence that breaches the rule. Silence about a rule is not a violation.
- rule_id must be the exact id of the violated rule from the provided list.
- explanation must say in one or two sentences how the excerpt breaches the rule, citing what the excerpt describes.
- severity defaults to the rule's own severity; raise or lower it only when the excerpt clearly warrants it.
- If no rules are violated, return "violations": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

const remediationPromptTemplate = `You are a compliance advisor. A rule violation was detected in an audit document. Write a short, actionable remediation suggestion (2-4 sentences) that would bring the organization back into compliance.

Respond with the suggestion only. No preamble, no headings, no bullet points.

Rule: %s

Violation: %s

Audit excerpt:
%s`

// buildRulePrompt creates the rule extraction system prompt with the
// response schema and category list embedded.
func buildRulePrompt() string {
	return fmt.Sprintf(rulePromptTemplate,
		ruleResponseSchema,
		strings.Join(ai.RuleCategories, ", "))
}

// buildViolationPrompt creates the violation detection system prompt.
func buildViolationPrompt() string {
	return fmt.Sprintf(violationPromptTemplate, violationResponseSchema)
}

// buildRuleInput assembles the user message for rule extraction: related
// segments first as context, then the segment under analysis.
func buildRuleInput(segmentText string, contextTexts []string) string {
	if len(contextTexts) == 0 {
		return "Policy text:\n" + segmentText
	}

	var sb strings.Builder
	sb.WriteString("Related policy context (for reference only, do not extract rules from it):\n")
	for i, ctx := range contextTexts {
		fmt.Fprintf(&sb, "[context %d] %s\n", i+1, ctx)
	}
	sb.WriteString("\nPolicy text:\n")
	sb.WriteString(segmentText)
	return sb.String()
}

// buildViolationInput assembles the user message for violation detection:
// the rule list with ids and severities, then the audit excerpt.
func buildViolationInput(segmentText string, rules []ai.RuleContext) string {
	var sb strings.Builder
	sb.WriteString("Compliance rules:\n")
	for _, r := range rules {
		fmt.Fprintf(&sb, "[id=%d, severity=%s] %s\n", r.ID, r.Severity, r.RuleText)
	}
	sb.WriteString("\nAudit excerpt:\n")
	sb.WriteString(segmentText)
	return sb.String()
}

// buildRemediationPrompt assembles the remediation prompt for one violation.
func buildRemediationPrompt(req ai.RemediationRequest) string {
	return fmt.Sprintf(remediationPromptTemplate,
		req.RuleText, req.Explanation, req.SegmentExcerpt)
}
