// Package store persists assessments (the audit trail) and the people
// table that backs query-based record lookup.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// AssessmentFilter specifies criteria for listing assessments.
type AssessmentFilter struct {
	Query    string    `json:"query,omitempty"`
	RecordID string    `json:"record_id,omitempty"`
	Since    time.Time `json:"since,omitempty"`
	Limit    int       `json:"limit,omitempty"`
	Offset   int       `json:"offset,omitempty"`
}

// PeopleFilter specifies a people search. Query is matched as a
// case-insensitive substring of the record's searchable text.
type PeopleFilter struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for the trust service.
type Store interface {
	// Assessments
	SaveAssessment(ctx context.Context, a *model.Assessment) error
	SaveAssessments(ctx context.Context, as []model.Assessment) error
	GetAssessment(ctx context.Context, id string) (*model.Assessment, error)
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error)
	CountAssessments(ctx context.Context) (int, error)

	// People
	UpsertPeople(ctx context.Context, recs []model.Record) (int, error)
	SearchPeople(ctx context.Context, filter PeopleFilter) ([]model.Record, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const (
	defaultListLimit   = 100
	defaultSearchLimit = 25
)

// prepareAssessment assigns an ID and timestamp when the caller left them
// unset.
func prepareAssessment(a *model.Assessment) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

// personRow is the flattened form of a people record.
type personRow struct {
	ID     string
	Name   string
	Search string
	Data   []byte
}

func toPersonRow(rec model.Record) (personRow, error) {
	id := rec.ID()
	if id == "" {
		id = uuid.New().String()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return personRow{}, eris.Wrapf(err, "store: marshal person %s", id)
	}
	return personRow{ID: id, Name: rec.DisplayName(), Search: searchText(id, rec), Data: data}, nil
}

func fromPersonData(id string, data []byte) (model.Record, error) {
	rec := model.Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrapf(err, "store: unmarshal person %s", id)
	}
	if rec.ID() == "" {
		rec["id"] = id
	}
	return rec, nil
}

// searchText is the lower-cased concatenation of a record's ID and every
// string value.
func searchText(id string, rec model.Record) string {
	parts := []string{strings.ToLower(id)}
	for _, v := range rec {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.ToLower(strings.TrimSpace(s)))
		}
	}
	return strings.Join(parts, " ")
}

// likePattern builds a substring LIKE pattern with \ as the escape
// character.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(q))) + "%"
}

func marshalBreakdown(a *model.Assessment) ([]byte, error) {
	b, err := json.Marshal(a.Breakdown)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal breakdown %s", a.ID)
	}
	return b, nil
}

func unmarshalBreakdown(a *model.Assessment, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return eris.Wrapf(json.Unmarshal(b, &a.Breakdown), "store: unmarshal breakdown %s", a.ID)
}
