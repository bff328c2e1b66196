package scorer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/identity-trust/internal/model"
)

// DefaultDaysOld is assumed when a record has no parsable registration date.
const DefaultDaysOld = 365

// Candidate keys per logical field, tried in order. The first present,
// non-empty value wins.
var fieldKeys = struct {
	email, phone, city, state, address, isValid, status, regDate []string
}{
	email:   []string{"email", "Email", "email_address", "Email Address"},
	phone:   []string{"phone", "Phone", "mobile_phone", "Mobile Phone", "phone_number", "Phone Number"},
	city:    []string{"city", "City"},
	state:   []string{"state", "State"},
	address: []string{"address", "Address", "street_address", "Street Address", "address_line1"},
	isValid: []string{"is_valid", "isValid", "Is Valid"},
	status:  []string{"status", "Status", "result", "Result", "verification_status"},
	regDate: []string{"reg_date", "regDate", "registered_at"},
}

// freeMailDomains never count as corporate.
var freeMailDomains = map[string]bool{
	"gmail.com":      true,
	"yahoo.com":      true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"icloud.com":     true,
	"aol.com":        true,
	"proton.me":      true,
	"protonmail.com": true,
}

var regDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

var fold = cases.Fold()

// DerivedMetrics bundles every typed input the scoring stages need for one
// record.
type DerivedMetrics struct {
	Signals     model.Signals
	DataQuality DataQualityMetrics
	SourceTrust SourceTrustworthinessMetrics
	Feedback    []ReputationFeedback
	Reputation  model.ReputationResult
	RawTrust    RawTrustInputs
}

// DeriveMetrics reads the record's shape and builds all metric inputs. It
// never fails: missing or malformed fields degrade to defaults.
func DeriveMetrics(rec model.Record, now time.Time, repWeights ReputationWeights) DerivedMetrics {
	sig := DeriveSignals(rec, now)
	raw, rep := RawTrustFromSignals(sig, repWeights)
	return DerivedMetrics{
		Signals:     sig,
		DataQuality: DataQualityFromSignals(sig),
		SourceTrust: SourceTrustFromSignals(sig),
		Feedback:    FeedbackFromSignals(sig),
		Reputation:  rep,
		RawTrust:    raw,
	}
}

// DeriveSignals extracts presence flags, validity, age and email domain.
func DeriveSignals(rec model.Record, now time.Time) model.Signals {
	email := stringField(rec, fieldKeys.email)
	domain := emailDomain(email)

	sig := model.Signals{
		HasEmail:          email != "",
		HasPhone:          stringField(rec, fieldKeys.phone) != "",
		HasLocation:       stringField(rec, fieldKeys.city) != "" || stringField(rec, fieldKeys.state) != "",
		HasAddress:        stringField(rec, fieldKeys.address) != "",
		IsValid:           isValid(rec),
		DaysOld:           DefaultDaysOld,
		EmailDomain:       domain,
		IsCorporateDomain: isCorporateDomain(domain),
	}
	if t, ok := registrationDate(rec); ok {
		sig.DaysOld = daysBetween(t, now)
		sig.DaysOldKnown = true
	}
	return sig
}

// stringField returns the first non-empty candidate value, NFKC-normalized
// and trimmed.
func stringField(rec model.Record, keys []string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case bool:
			s = strconv.FormatBool(t)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		default:
			continue
		}
		if s = strings.TrimSpace(norm.NFKC.String(s)); s != "" {
			return s
		}
	}
	return ""
}

func isValid(rec model.Record) bool {
	if v, ok := rec.Lookup(fieldKeys.isValid...); ok && truthy(v) {
		return true
	}
	return fold.String(stringField(rec, fieldKeys.status)) == "valid"
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t == 1
	case int:
		return t == 1
	case string:
		switch fold.String(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

// emailDomain returns the lower-cased text after the last "@", or "" when
// the address is malformed.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	if !strings.Contains(domain, ".") || strings.ContainsAny(domain, " @") {
		return ""
	}
	return domain
}

func isCorporateDomain(domain string) bool {
	if domain == "" {
		return false
	}
	return !freeMailDomains[domain]
}

func registrationDate(rec model.Record) (time.Time, bool) {
	for _, k := range fieldKeys.regDate {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case time.Time:
			return t, !t.IsZero()
		case float64:
			return time.Unix(int64(t), 0), true
		case int64:
			return time.Unix(t, 0), true
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				continue
			}
			if ts, err := parseDate(s); err == nil {
				return ts, true
			}
			// First non-empty spelling decides; unparsable means unknown.
			return time.Time{}, false
		}
	}
	return time.Time{}, false
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range regDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	return time.Time{}, lastErr
}

// daysBetween returns whole days from t to now, floored at 0.
func daysBetween(t, now time.Time) int {
	days := math.Floor(now.Sub(t).Hours() / 24)
	if days < 0 || math.IsNaN(days) {
		return 0
	}
	return int(days)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// DataQualityFromSignals applies the fixed linear data quality formulas.
func DataQualityFromSignals(sig model.Signals) DataQualityMetrics {
	email, phone := b2f(sig.HasEmail), b2f(sig.HasPhone)
	loc, addr := b2f(sig.HasLocation), b2f(sig.HasAddress)
	valid, corp := b2f(sig.IsValid), b2f(sig.IsCorporateDomain)
	days := float64(sig.DaysOld)

	return DataQualityMetrics{
		Completeness: clampScore(40 + 20*email + 15*phone + 10*loc + 15*addr),
		Consistency:  clampScore(70 + 15*valid + 10*b2f(sig.HasEmail && sig.HasPhone)),
		Validity:     clampScore(60 + 30*valid + 5*corp),
		Accuracy:     clampScore(65 + 20*valid + 10*addr),
		Timeliness:   clampScore(math.Max(40, 100-days/7)),
		Uniqueness:   clampScore(75 + 10*email + 10*phone),
		Precision:    clampScore(60 + 15*addr + 10*loc + 5*phone),
		Usability:    clampScore(55 + 15*email + 15*phone + 10*addr),
	}
}

// SourceTrustFromSignals perturbs a single base score per dimension. The
// base is higher for corporate email domains.
func SourceTrustFromSignals(sig model.Signals) SourceTrustworthinessMetrics {
	base := 80.0
	if sig.IsCorporateDomain {
		base = 84
	}
	update := 78.0
	if sig.DaysOldKnown {
		update = math.Max(70, 100-float64(sig.DaysOld)/24)
	}

	return SourceTrustworthinessMetrics{
		Security:        clampScore(base + 4),
		Privacy:         clampScore(base + 2),
		Ethics:          clampScore(base + 3),
		Resiliency:      clampScore(base),
		Robustness:      clampScore(base - 1),
		Reliability:     clampScore(base + 3 + 4*b2f(sig.IsValid)),
		Reputation:      clampScore(base + 1),
		Transparency:    clampScore(base - 2),
		UpdateFrequency: clampScore(update),
	}
}

// FeedbackFromSignals synthesizes two consortium votes from the record's
// own evidence: a high-credibility vote that always recognises the
// identity, and a lower-credibility vote that only does so when verified.
func FeedbackFromSignals(sig model.Signals) []ReputationFeedback {
	valid := b2f(sig.IsValid)
	frd := math.Exp(-0.01 * float64(sig.DaysOld))
	fvc := math.Min(0.9, 0.4+0.2*b2f(sig.HasEmail)+0.15*b2f(sig.HasPhone)+0.15*b2f(sig.HasAddress))

	return []ReputationFeedback{
		{SCW: 0.9, DYK: 1, WDB: valid, FRD: frd, FVC: fvc},
		{SCW: 0.7, DYK: valid, WDB: valid, FRD: frd, FVC: fvc},
	}
}

// RawTrustFromSignals builds the raw trust factors. Rep is the consortium
// reputation of the synthetic feedback, scaled by 100.
func RawTrustFromSignals(sig model.Signals, repWeights ReputationWeights) (RawTrustInputs, model.ReputationResult) {
	valid, corp := b2f(sig.IsValid), b2f(sig.IsCorporateDomain)
	email, phone := b2f(sig.HasEmail), b2f(sig.HasPhone)
	loc, addr := b2f(sig.HasLocation), b2f(sig.HasAddress)
	days := float64(sig.DaysOld)

	rep := ScoreReputation(FeedbackFromSignals(sig), repWeights)

	return RawTrustInputs{
		IVH:  clampScore(60 + 30*valid),
		ABD:  clampScore(50 + 10*email + 10*phone + 8*loc + 12*addr),
		DIT:  clampScore(math.Min(100, 40+days/7.3)),
		RIE:  clampScore(math.Max(40, 90-days/12)),
		IVSD: clampScore(50 + 10*(email+phone+addr+loc)),
		Rep:  clampScore(rep.Total * 100),
		Beh:  clampScore(65 + 5*valid + 5*corp),
	}, rep
}
