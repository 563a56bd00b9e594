// Package oracle implements the investigation oracle boundary on top of the
// Gemini API. The core describes a discrepancy and its surrounding context;
// the oracle responds with ranked, confidence-scored fix proposals that the
// reconciliation engine gates and applies.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	cascade "github.com/dalenavi/cascade-ledger-sub003"
)

// DefaultModelName is the Gemini model used for investigations.
const DefaultModelName = "gemini-2.5-flash"

// Gemini asks a Gemini model to investigate discrepancies. It implements
// cascade.Oracle.
type Gemini struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGemini creates the Gemini oracle. The API key is taken from the
// GEMINI_API_KEY environment variable by the genai client.
func NewGemini(ctx context.Context, log zerolog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{})
	if err != nil {
		return nil, fmt.Errorf("could not create genai client: %w", err)
	}
	return &Gemini{client: client, model: DefaultModelName, log: log}, nil
}

const systemPrompt = `You are a reconciliation analyst for a double-entry personal ledger.
You receive one detected discrepancy together with the source rows, ledger
transactions and running-balance checkpoints within a few days of it.

Form a hypothesis for the root cause and propose corrective edits.

Output STRICT JSON only (no comments, no Markdown, no code fences), a single
object with these fields:
- "hypothesis": string
- "evidence": string
- "fixes": array of fix objects, ranked best first, each with:
  - "description": string
  - "confidence": number in [0,1]
  - "reasoning": string
  - "deltas": array of {"op": "create"|"update"|"delete"|"exclude",
     "reason": string, "transaction": optional transaction object,
     "target": optional transaction id, "excludeRows": optional array of ints}
  - "impact": {"balanceChange": {"amount": number, "currency": string},
     "creates": int, "updates": int, "deletes": int, "excludes": int,
     "riskNote": string}
  - "supportingEvidence": array of strings
  - "assumptions": array of strings

A created or replacement transaction must be balanced double-entry: at least
two legs, each with exactly one positive "debit" or "credit", debits equal to
credits. Use the same JSON shapes as the transactions in the input.
Return an empty "fixes" array when you cannot propose a safe edit.`

// Investigate sends one discrepancy to the model and parses its proposals.
// A malformed or empty model response degrades to "no fix found"; only
// transport failures surface as errors.
func (g *Gemini) Investigate(ctx context.Context, req cascade.OracleRequest) (cascade.Investigation, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return cascade.Investigation{}, fmt.Errorf("could not marshal oracle request: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt},
				{Text: string(payload)},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return cascade.Investigation{}, fmt.Errorf("oracle call failed: %w", err)
	}

	inv := cascade.Investigation{
		ID:          uuid.NewString(),
		Discrepancy: req.Discrepancy.ID,
		AppliedFix:  -1,
	}

	raw := resp.Text()
	if raw == "" {
		g.log.Warn().Str("discrepancy", req.Discrepancy.ID).Msg("empty oracle response, treating as no fix found")
		return inv, nil
	}

	var parsed struct {
		Hypothesis string                `json:"hypothesis"`
		Evidence   string                `json:"evidence"`
		Fixes      []cascade.ProposedFix `json:"fixes"`
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		g.log.Warn().Err(err).Str("discrepancy", req.Discrepancy.ID).Msg("malformed oracle response, treating as no fix found")
		return inv, nil
	}

	inv.Hypothesis = parsed.Hypothesis
	inv.Evidence = parsed.Evidence
	inv.Fixes = sanitizeFixes(parsed.Fixes)
	return inv, nil
}

// sanitizeFixes drops proposals the engine could never apply and fills in
// identifiers the model left blank.
func sanitizeFixes(fixes []cascade.ProposedFix) []cascade.ProposedFix {
	var kept []cascade.ProposedFix
	for _, f := range fixes {
		if f.Confidence < 0 || f.Confidence > 1 || len(f.Deltas) == 0 {
			continue
		}
		for i := range f.Deltas {
			if t := f.Deltas[i].Transaction; t != nil && t.ID == "" {
				t.ID = uuid.NewString()
			}
		}
		kept = append(kept, f)
	}
	return kept
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the strict-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
