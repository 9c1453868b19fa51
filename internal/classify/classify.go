// Package classify implements the classification engine that decides what
// may leave the machine.
//
// Sanitize is a pure function: a fixed, ordered list of detectors runs
// against the input, each match is replaced with that detector's placeholder
// token, and the most severe matched category becomes the overall data
// class. Categories marked blocking (private keys, cloud access key IDs)
// force the whole result to blocked with empty sanitized text — partially
// redacted blocked content is never returned.
package classify

// SensitiveDataType is a named category the engine recognizes.
type SensitiveDataType string

// Detector categories. Each maps to exactly one placeholder token.
const (
	TypePrivateKey     SensitiveDataType = "private_key"
	TypeCloudAccessKey SensitiveDataType = "cloud_access_key"
	TypeJWT            SensitiveDataType = "jwt"
	TypeAPIToken       SensitiveDataType = "api_token"
	TypeCredential     SensitiveDataType = "credential"
	TypeSSN            SensitiveDataType = "ssn"
	TypeCreditCard     SensitiveDataType = "credit_card"
	TypeEmail          SensitiveDataType = "email"
	TypePhone          SensitiveDataType = "phone"
	TypeIPAddress      SensitiveDataType = "ip_address"
	TypeHomePath       SensitiveDataType = "home_path"
	TypeMedicalRecord  SensitiveDataType = "medical_record"
)

// DataClass is the severity tier assigned from the most severe matched
// category.
type DataClass int

// Severity tiers, in increasing order.
const (
	Public DataClass = iota
	Internal
	Confidential
	Restricted
)

// String returns the lowercase name of the data class.
func (c DataClass) String() string {
	switch c {
	case Public:
		return "public"
	case Internal:
		return "internal"
	case Confidential:
		return "confidential"
	case Restricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Result is the outcome of one Sanitize call. It is owned by the caller;
// the engine keeps no state between calls.
type Result struct {
	SanitizedText  string              `json:"sanitized_text"`
	DetectedTypes  []SensitiveDataType `json:"detected_types,omitempty"`
	DataClass      DataClass           `json:"data_class"`
	Blocked        bool                `json:"blocked"`
	BlockReason    string              `json:"block_reason,omitempty"`
	RedactionCount int                 `json:"redaction_count"`
}

// PreviewResult is the non-mutating dry-run view of a classification,
// for display before committing to transmission.
type PreviewResult struct {
	Original       string              `json:"original"`
	Sanitized      string              `json:"sanitized"`
	WouldSanitize  bool                `json:"would_sanitize"`
	WouldBlock     bool                `json:"would_block"`
	DetectedTypes  []SensitiveDataType `json:"detected_types,omitempty"`
	Classification DataClass           `json:"classification"`
}

// Sanitize runs every detector against text, in order, each against the
// progressively-redacted output of the previous ones so overlapping spans
// are not double-counted. It never performs I/O and never blocks.
func Sanitize(text string) Result {
	res := Result{SanitizedText: text, DataClass: Public}
	if text == "" {
		return res
	}

	seen := make(map[SensitiveDataType]bool)
	for _, d := range detectors {
		matches := d.Pattern.FindAllStringIndex(res.SanitizedText, -1)
		if len(matches) == 0 {
			continue
		}

		res.RedactionCount += len(matches)
		if !seen[d.Type] {
			seen[d.Type] = true
			res.DetectedTypes = append(res.DetectedTypes, d.Type)
		}
		if d.Severity > res.DataClass {
			res.DataClass = d.Severity
		}
		if d.Blocking && !res.Blocked {
			res.Blocked = true
			res.BlockReason = d.Reason
		}

		res.SanitizedText = d.Pattern.ReplaceAllLiteralString(res.SanitizedText, d.Token)
	}

	// Blocking categories veto the whole payload, independent of any
	// non-blocking matches also present.
	if res.Blocked {
		res.SanitizedText = ""
	}
	return res
}

// Preview classifies text without committing to anything. The original is
// returned alongside the would-be sanitized form so callers can show a
// diff before transmission.
func Preview(text string) PreviewResult {
	r := Sanitize(text)
	return PreviewResult{
		Original:       text,
		Sanitized:      r.SanitizedText,
		WouldSanitize:  r.RedactionCount > 0,
		WouldBlock:     r.Blocked,
		DetectedTypes:  r.DetectedTypes,
		Classification: r.DataClass,
	}
}
