package classify

import "regexp"

// detector is one fixed rule: a pattern, the category it reports, the
// severity it contributes, and the placeholder token that replaces every
// match. The tokens are a committed contract — downstream consumers and
// tests parse them — so changing one is a breaking change.
type detector struct {
	Type     SensitiveDataType
	Pattern  *regexp.Regexp
	Severity DataClass
	Token    string
	Blocking bool
	Reason   string
}

// detectors is the fixed, ordered rule list. All rules run unconditionally;
// later rules match against already-redacted text. No pattern can match
// another rule's placeholder token (they contain no digits, '@', '.', '/',
// or assignment operators), which is what makes Sanitize idempotent.
var detectors = []detector{
	{
		Type:     TypePrivateKey,
		Pattern:  regexp.MustCompile(`-----BEGIN (?:[A-Z]+ )*PRIVATE KEY-----`),
		Severity: Restricted,
		Token:    "[REDACTED_PRIVATE_KEY]",
		Blocking: true,
		Reason:   "private key material detected",
	},
	{
		Type:     TypeCloudAccessKey,
		Pattern:  regexp.MustCompile(`\b(?:AKIA|ASIA|ABIA|ACCA)[0-9A-Z]{16}\b`),
		Severity: Restricted,
		Token:    "[REDACTED_ACCESS_KEY]",
		Blocking: true,
		Reason:   "cloud access key identifier detected",
	},
	{
		// JWT before the generic token rule: three base64url segments.
		Type:     TypeJWT,
		Pattern:  regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`),
		Severity: Confidential,
		Token:    "[REDACTED_JWT]",
	},
	{
		Type:     TypeAPIToken,
		Pattern:  regexp.MustCompile(`\b(?:sk|rk|pk)-[A-Za-z0-9]{20,}\b|\bghp_[A-Za-z0-9]{36}\b|\bgho_[A-Za-z0-9]{36}\b|\bglpat-[A-Za-z0-9_-]{20}\b|\bxox[bpoas]-[A-Za-z0-9-]{10,}\b`),
		Severity: Confidential,
		Token:    "[REDACTED_API_TOKEN]",
	},
	{
		// Assignment-style secrets. The value must not start with '[' so an
		// already-placed placeholder is never counted a second time.
		Type:     TypeCredential,
		Pattern:  regexp.MustCompile(`(?i)\b(?:password|passwd|pwd|secret|api[_-]?key|access[_-]?token|auth[_-]?token)\s*[:=]\s*[^\s\[]\S*`),
		Severity: Confidential,
		Token:    "[REDACTED_CREDENTIAL]",
	},
	{
		Type:     TypeSSN,
		Pattern:  regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		Severity: Restricted,
		Token:    "[REDACTED_SSN]",
	},
	{
		Type:     TypeCreditCard,
		Pattern:  regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`),
		Severity: Restricted,
		Token:    "[REDACTED_CARD_NUMBER]",
	},
	{
		Type:     TypeMedicalRecord,
		Pattern:  regexp.MustCompile(`(?i)\b(?:mrn|medical[ _-]record(?:[ _-](?:number|no))?|patient[ _-]id)\s*[#:]?\s*\d[\w-]*`),
		Severity: Restricted,
		Token:    "[REDACTED_MEDICAL_RECORD]",
	},
	{
		Type:     TypeEmail,
		Pattern:  regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		Severity: Internal,
		Token:    "[REDACTED_EMAIL]",
	},
	{
		// Separator-delimited phone numbers. Bare digit runs are left alone
		// to keep false positives down (IDs, byte counts, timestamps).
		Type:     TypePhone,
		Pattern:  regexp.MustCompile(`(?:\+\d{1,2}[ .-]?)?\(?\d{3}\)?[ .-]\d{3}[ .-]\d{4}\b`),
		Severity: Internal,
		Token:    "[REDACTED_PHONE]",
	},
	{
		Type:     TypeIPAddress,
		Pattern:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		Severity: Internal,
		Token:    "[REDACTED_IP]",
	},
	{
		Type:     TypeHomePath,
		Pattern:  regexp.MustCompile(`(?:/home/|/Users/|[A-Za-z]:\\Users\\)[^\s"']+`),
		Severity: Internal,
		Token:    "[REDACTED_PATH]",
	},
}
