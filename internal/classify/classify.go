package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/halcyonlab/creatorlens/internal/llm"
	"github.com/halcyonlab/creatorlens/internal/tiktok"
)

// DefaultMinModelMatches is the threshold below which the keyword fallback
// is consulted.
const DefaultMinModelMatches = 3

const classifyPrompt = `You are classifying short-video descriptions for a brand partnership review.

Target category: %s

Below is a JSON list of candidate videos with their id, description and play count. Decide which videos belong to the target category based on their description. Be strict: only include a video when the description clearly indicates the category.

Candidates:
%s

Respond with ONLY this JSON:
{
    "matches": [
        {"id": "video id from the candidate list", "justification": "One short sentence explaining the match"}
    ]
}

Return an empty matches array if nothing fits. Never invent ids that are not in the candidate list.`

// Result holds the classification outcome for one batch of videos.
type Result struct {
	// Videos is the matched subset, in the original input order.
	Videos []tiktok.Video
	// Reasons maps video id to the justification for its match.
	Reasons map[string]string
	// UsedFallback reports whether the keyword table produced the working
	// set instead of the oracle.
	UsedFallback bool
}

// MatchedIDs returns the ids of the matched videos.
func (r *Result) MatchedIDs() []string {
	ids := make([]string, len(r.Videos))
	for i, v := range r.Videos {
		ids[i] = v.ID
	}
	return ids
}

// Classifier labels videos as belonging to a target category using an LLM
// oracle, with a deterministic keyword fallback when the oracle under-returns.
type Classifier struct {
	provider        llm.Provider
	targetCategory  string
	keywords        []string
	minModelMatches int
}

// NewClassifier creates a new category classifier. An empty keyword list
// falls back to the built-in table for the category; minModelMatches <= 0
// uses the default threshold.
func NewClassifier(provider llm.Provider, targetCategory string, keywords []string, minModelMatches int) *Classifier {
	if targetCategory == "" {
		targetCategory = DefaultTargetCategory
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if minModelMatches <= 0 {
		minModelMatches = DefaultMinModelMatches
	}
	return &Classifier{
		provider:        provider,
		targetCategory:  targetCategory,
		keywords:        keywords,
		minModelMatches: minModelMatches,
	}
}

type candidate struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Popularity  int64  `json:"popularity"`
}

type oracleResponse struct {
	Matches []struct {
		ID            json.Number `json:"id"`
		Justification string      `json:"justification"`
	} `json:"matches"`
}

// Classify issues one oracle call for the full batch and returns the matched
// subset. Oracle failure and malformed responses degrade to zero matches and
// let the keyword fallback decide; they never fail the stage.
func (c *Classifier) Classify(ctx context.Context, videos []tiktok.Video) *Result {
	allowList := make(map[string]tiktok.Video, len(videos))
	candidates := make([]candidate, 0, len(videos))
	for _, v := range videos {
		id := tiktok.NormalizeID(v.ID)
		if id == "" {
			continue
		}
		allowList[id] = v
		candidates = append(candidates, candidate{
			ID:          id,
			Description: v.Description,
			Popularity:  v.Stats.PlayCount,
		})
	}

	reasons := c.askOracle(ctx, candidates, allowList)

	result := &Result{Reasons: reasons}
	if len(reasons) < c.minModelMatches {
		keywordReasons := c.keywordScan(videos)
		if len(keywordReasons) > len(reasons) {
			log.Printf("Oracle returned %d matches (< %d), using keyword fallback with %d matches (table %s)",
				len(reasons), c.minModelMatches, len(keywordReasons), KeywordTableVersion)
			result.Reasons = keywordReasons
			result.UsedFallback = true
		}
	}

	// matched subset in input order, duplicates already impossible via map
	for _, v := range videos {
		if _, ok := result.Reasons[tiktok.NormalizeID(v.ID)]; ok {
			result.Videos = append(result.Videos, v)
		}
	}
	return result
}

// askOracle performs the single classification call. Any failure is reported
// as zero matches.
func (c *Classifier) askOracle(ctx context.Context, candidates []candidate, allowList map[string]tiktok.Video) map[string]string {
	reasons := make(map[string]string)
	if c.provider == nil {
		log.Println("No LLM provider available for classification, relying on keyword fallback")
		return reasons
	}

	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return reasons
	}
	prompt := fmt.Sprintf(classifyPrompt, c.targetCategory, string(payload))

	responseText, err := c.provider.Generate(ctx, prompt, 2048)
	if err != nil {
		log.Printf("Classification oracle unavailable: %v", err)
		return reasons
	}

	var parsed oracleResponse
	if err := llm.DecodeJSONResponse(responseText, &parsed); err != nil {
		log.Printf("Malformed classification response, treating as zero matches: %v", err)
		return reasons
	}

	dropped := 0
	for _, m := range parsed.Matches {
		id := tiktok.NormalizeID(m.ID.String())
		if _, ok := allowList[id]; !ok {
			dropped++
			continue
		}
		justification := m.Justification
		if justification == "" {
			justification = "matched by classification model"
		}
		reasons[id] = justification
	}
	if dropped > 0 {
		log.Printf("Dropped %d oracle match(es) outside the candidate list", dropped)
	}
	return reasons
}

// keywordScan applies the deterministic keyword table over descriptions.
func (c *Classifier) keywordScan(videos []tiktok.Video) map[string]string {
	reasons := make(map[string]string)
	for _, v := range videos {
		id := tiktok.NormalizeID(v.ID)
		if id == "" {
			continue
		}
		desc := strings.ToLower(v.Description)
		for _, kw := range c.keywords {
			if strings.Contains(desc, kw) {
				reasons[id] = fmt.Sprintf("keyword match: %q (table %s)", kw, KeywordTableVersion)
				break
			}
		}
	}
	return reasons
}
