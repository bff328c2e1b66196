package api

import (
	"github.com/sells-group/identity-trust/internal/model"
)

// ContentTypeTrustScore is the content block type a chat renderer draws as
// a pair of gauges.
const ContentTypeTrustScore = "trust_score"

// Gauge is one circular gauge in a rendered trust score block.
type Gauge struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Max   float64 `json:"max"`
}

// ContentBlock is the structured tool result for one assessed record.
type ContentBlock struct {
	Type       string           `json:"type"`
	RecordID   string           `json:"record_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Gauges     []Gauge          `json:"gauges"`
	Assessment model.Assessment `json:"assessment"`
}

// ToolResult is the response of the agent tool endpoint.
type ToolResult struct {
	Query   string         `json:"query,omitempty"`
	Content []ContentBlock `json:"content"`
}

// NewContentBlock packages an assessment with its Trust Score (DIS option 1)
// and Confidence Score gauges. maxCS scales the confidence gauge.
func NewContentBlock(a model.Assessment, maxCS float64) ContentBlock {
	if maxCS <= 0 {
		maxCS = 100
	}
	return ContentBlock{
		Type:     ContentTypeTrustScore,
		RecordID: a.RecordID,
		Name:     a.Name,
		Gauges: []Gauge{
			{Label: "Trust Score", Value: a.DISOption1, Max: 100},
			{Label: "Confidence Score", Value: a.CS, Max: maxCS},
		},
		Assessment: a,
	}
}
