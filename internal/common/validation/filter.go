// Package validation checks externally supplied filter documents
// (saved searches, URL-state restoration) against a JSON schema before
// they are applied, so misspelled keys fail loudly instead of being
// silently dropped.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const filterSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"propertyType": {"type": "string"},
		"district": {"type": "string"},
		"minDeposit": {"type": "integer", "minimum": 0},
		"maxDeposit": {"type": "integer", "minimum": 0},
		"minRent": {"type": "integer", "minimum": 0},
		"maxRent": {"type": "integer", "minimum": 0},
		"minAreaM2": {"type": "number", "minimum": 0},
		"maxAreaM2": {"type": "number", "minimum": 0},
		"parking": {"type": "boolean"},
		"radiusSearch": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"enabled": {"type": "boolean"},
				"center": {
					"type": "object",
					"additionalProperties": false,
					"properties": {
						"lat": {"type": "number", "minimum": -90, "maximum": 90},
						"lng": {"type": "number", "minimum": -180, "maximum": 180}
					},
					"required": ["lat", "lng"]
				},
				"radiusKm": {"type": "number", "exclusiveMinimum": 0}
			}
		}
	}
}`

var filterSchemaLoader = gojsonschema.NewStringLoader(filterSchema)

// ValidateFilterDocument validates a raw JSON filter document. The
// returned error lists every schema violation.
func ValidateFilterDocument(doc []byte) error {
	result, err := gojsonschema.Validate(filterSchemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("filter document is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("filter document failed validation: %s", strings.Join(msgs, "; "))
}
