package meta

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/pgxn/meta-go/valid"
)

// ErrNoDocuments is returned by MergeValues and FromValues when called with
// no documents.
var ErrNoDocuments = errors.New("no documents to merge")

// A MergeError reports a merged document that fails validation as a whole.
// Individually valid documents can still combine into an invalid composite,
// for example when a patch nulls out a required property.
type MergeError struct {
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merged document is invalid: %v", e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

var (
	validatorOnce   sync.Once
	sharedValidator *valid.Validator
)

// validator returns the shared schema validator, compiling the embedded
// schemas on first use.
func validator() *valid.Validator {
	validatorOnce.Do(func() { sharedValidator = valid.MustNew() })
	return sharedValidator
}

// FromValue validates doc against the schemas for the version named in its
// meta-spec property and decodes it into a Distribution, upgrading v1
// documents to v2 along the way.
func FromValue(doc map[string]interface{}) (*Distribution, error) {
	version, err := validator().Validate(doc)
	if err != nil {
		return nil, err
	}
	return fromVersion(version, doc)
}

func fromVersion(version int, doc map[string]interface{}) (*Distribution, error) {
	switch version {
	case 1:
		upgraded, err := UpgradeValue(doc)
		if err != nil {
			return nil, err
		}
		return decodeDistribution(upgraded)
	case 2:
		return decodeDistribution(doc)
	default:
		return nil, valid.ErrUnknownSpec
	}
}

// decodeDistribution decodes a schema-valid v2 document into a Distribution
// and runs the semantic checks on the result.
func decodeDistribution(doc map[string]interface{}) (*Distribution, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var d Distribution
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := checkDistribution(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Parse parses data as a META.json document of either spec version.
func Parse(data []byte) (*Distribution, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return FromValue(doc)
}

// ParseFile reads and parses the META.json document at path.
func ParseFile(path string) (*Distribution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Merge applies patch to doc as an RFC 7396 merge patch and returns the
// result. Object members merge recursively, a null patch member deletes the
// corresponding document member, and any other patch member replaces the
// document member outright.
func Merge(doc, patch map[string]interface{}) (map[string]interface{}, error) {
	docData, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	patchData, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(docData, patchData)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(merged, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// MergeValues folds the documents into one. The first document is upgraded
// to v2 if necessary, then each remaining document applies to the result as
// an RFC 7396 merge patch. The result is not validated; use FromValues for
// that.
func MergeValues(docs []map[string]interface{}) (map[string]interface{}, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	base := docs[0]
	switch valid.SpecVersion(base) {
	case 1:
		var err error
		if base, err = UpgradeValue(base); err != nil {
			return nil, err
		}
	case 2:
	default:
		return nil, valid.ErrUnknownSpec
	}
	for _, patch := range docs[1:] {
		var err error
		if base, err = Merge(base, patch); err != nil {
			return nil, err
		}
	}
	return base, nil
}

// FromValues merges the documents, validates the result against the v2
// distribution schema, and decodes it into a Distribution.
func FromValues(docs []map[string]interface{}) (*Distribution, error) {
	merged, err := MergeValues(docs)
	if err != nil {
		return nil, err
	}
	if err := validator().ValidateSchema(merged, valid.SchemaID(2, "distribution")); err != nil {
		return nil, &MergeError{Err: err}
	}
	return decodeDistribution(merged)
}
