package meta

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pgxn/meta-go/valid"
)

// Payload records who released a distribution, when, where the archive
// was uploaded, and digests of its content. PGXN signs the payload when
// it publishes a release.
type Payload struct {
	User    string    `json:"user"`
	Date    time.Time `json:"date"`
	URI     string    `json:"uri"`
	Digests Digests   `json:"digests"`
}

// PayloadError reports a failure to extract the payload from the release
// certification envelope. Stage is one of decode, parse, validate, or
// build.
type PayloadError struct {
	Stage string
	Err   error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("cannot %s release payload: %v", e.Stage, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// A Release represents a distribution META.json as published on PGXN: a
// Distribution extended with the certs property added by the server when
// it certified the release. Values are constructed by ReleaseFromValue,
// ReleaseFromValues, ParseRelease, and ParseReleaseFile. Treat a
// constructed Release as read only.
type Release struct {
	Distribution
	certs   map[string]interface{}
	payload Payload
}

// Certs returns the raw release certifications, keyed by certifier. The
// pgxn key holds the JWS with the signed release payload.
func (r *Release) Certs() map[string]interface{} { return r.certs }

// Payload returns the release payload extracted from the pgxn
// certification.
func (r *Release) Payload() Payload { return r.payload }

func (r *Release) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &r.Distribution); err != nil {
		return err
	}
	var doc struct {
		Certs map[string]interface{} `json:"certs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.certs = doc.Certs
	return nil
}

func (r Release) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(r.Distribution)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc["certs"] = r.certs
	return json.Marshal(doc)
}

// payloadFrom pulls the pgxn payload out of certs, decodes its base64url
// encoding, and validates it before building the typed value.
func payloadFrom(certs map[string]interface{}) (Payload, error) {
	var p Payload
	pgxn, ok := certs["pgxn"].(map[string]interface{})
	if !ok {
		return p, errors.New("invalid or missing pgxn release data")
	}
	enc, ok := pgxn["payload"].(string)
	if !ok {
		return p, errors.New("missing or invalid pgxn payload")
	}
	data, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		return p, &PayloadError{Stage: "decode", Err: err}
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return p, &PayloadError{Stage: "parse", Err: err}
	}
	if err := validator().ValidatePayload(doc); err != nil {
		return p, &PayloadError{Stage: "validate", Err: err}
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, &PayloadError{Stage: "build", Err: err}
	}
	return p, nil
}

func decodeRelease(doc map[string]interface{}) (*Release, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	rel := new(Release)
	if err := json.Unmarshal(data, rel); err != nil {
		return nil, err
	}
	if err := checkDistribution(&rel.Distribution); err != nil {
		return nil, err
	}
	p, err := payloadFrom(rel.certs)
	if err != nil {
		return nil, err
	}
	rel.payload = p
	return rel, nil
}

// ReleaseFromValue validates doc against the PGXN release schema for its
// meta-spec version, converting v1 documents to v2, and returns the typed
// release.
func ReleaseFromValue(doc map[string]interface{}) (*Release, error) {
	version, err := validator().ValidateRelease(doc)
	if err != nil {
		return nil, err
	}
	return releaseFromVersion(version, doc)
}

func releaseFromVersion(version int, doc map[string]interface{}) (*Release, error) {
	switch version {
	case 1:
		v2, err := upgradeRelease(doc)
		if err != nil {
			return nil, err
		}
		return decodeRelease(v2)
	case 2:
		return decodeRelease(doc)
	default:
		return nil, valid.ErrUnknownSpec
	}
}

// ReleaseFromValues merges docs[1:] into docs[0] and returns the typed
// release for the result. A v1 first document converts to v2, including
// its synthesized certs, before the patches apply.
func ReleaseFromValues(docs []map[string]interface{}) (*Release, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	var merged map[string]interface{}
	switch valid.SpecVersion(docs[0]) {
	case 1:
		v2, err := upgradeRelease(docs[0])
		if err != nil {
			return nil, err
		}
		merged = v2
	case 2:
		merged = docs[0]
	default:
		return nil, valid.ErrUnknownSpec
	}
	for _, patch := range docs[1:] {
		next, err := Merge(merged, patch)
		if err != nil {
			return nil, err
		}
		merged = next
	}
	if err := validator().ValidateSchema(merged, valid.SchemaID(2, "release")); err != nil {
		return nil, &MergeError{Err: err}
	}
	return decodeRelease(merged)
}

// ParseRelease parses the JSON encoding of a published release META.json
// document.
func ParseRelease(data []byte) (*Release, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return ReleaseFromValue(doc)
}

// ParseReleaseFile reads path and parses it as a release document.
func ParseReleaseFile(path string) (*Release, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rel, err := ParseRelease(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rel, nil
}

// upgradeRelease converts a v1 release document to v2. The v1 release
// properties user, date, and sha1 become a v2 payload, base64url encoded
// under certs the way the PGXN server does it. The synthesized signature
// is a placeholder; v1 releases were never cryptographically signed.
func upgradeRelease(v1 map[string]interface{}) (map[string]interface{}, error) {
	v2, err := UpgradeValue(v1)
	if err != nil {
		return nil, err
	}
	certs, err := upgradeCerts(v1)
	if err != nil {
		return nil, err
	}
	v2["certs"] = certs
	return v2, nil
}

func upgradeCerts(v1 map[string]interface{}) (map[string]interface{}, error) {
	vals := make(map[string]string, 5)
	for _, key := range []string{"user", "date", "sha1", "name", "version"} {
		s, ok := v1[key].(string)
		if !ok {
			return nil, conversionErrorf("missing release property %q", key)
		}
		vals[key] = s
	}
	payload := map[string]interface{}{
		"user": vals["user"],
		"date": vals["date"],
		"uri": fmt.Sprintf("dist/%s/%s/%s-%s.zip",
			vals["name"], vals["version"], vals["name"], vals["version"]),
		"digests": map[string]interface{}{"sha1": vals["sha1"]},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"pgxn": map[string]interface{}{
			"payload":   base64.RawURLEncoding.EncodeToString(data),
			"signature": strings.ReplaceAll(uuid.NewString(), "-", ""),
		},
	}, nil
}
