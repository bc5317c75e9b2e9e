// Package openfema models the OpenFEMA Web Declaration Areas dataset and
// builds the OData-style request URLs used to page through it.
package openfema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DeclarationArea is one disaster-declaration-area record as returned by the
// FemaWebDeclarationAreas endpoint.
type DeclarationArea struct {
	DisasterNumber         int       `json:"disasterNumber"`
	ProgramTypeCode        string    `json:"programTypeCode"`
	ProgramTypeDescription string    `json:"programTypeDescription"`
	StateCode              string    `json:"stateCode"`
	PlaceCode              string    `json:"placeCode"`
	PlaceName              string    `json:"placeName"`
	DesignatedDate         time.Time `json:"designatedDate"`
	EntryDate              time.Time `json:"entryDate"`
	UpdateDate             time.Time `json:"updateDate"`
	Hash                   string    `json:"hash"`
	LastRefresh            time.Time `json:"lastRefresh"`
	ID                     string    `json:"id"`
}

// requiredFields are the JSON keys that must be present and non-null in every
// record. The $select list in Query requests these fields (id the server
// returns regardless), so a record missing one indicates a malformed or
// truncated response.
var requiredFields = []string{
	"disasterNumber",
	"programTypeCode",
	"programTypeDescription",
	"stateCode",
	"placeCode",
	"placeName",
	"designatedDate",
	"entryDate",
	"updateDate",
	"hash",
	"lastRefresh",
	"id",
}

// UnmarshalJSON decodes a record strictly: every field is required, and an
// absent, null, or mistyped field fails the whole decode.
func (d *DeclarationArea) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("declaration area: %w", err)
	}

	for _, field := range requiredFields {
		val, ok := raw[field]
		if !ok || bytes.Equal(val, []byte("null")) {
			return fmt.Errorf("declaration area: missing required field %q", field)
		}
	}

	type plain DeclarationArea
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("declaration area: %w", err)
	}

	*d = DeclarationArea(p)
	return nil
}

// Metadata describes the server-side pagination and query state echoed back
// on the first page. Only Count drives the pagination loop; the remaining
// fields are kept as pass-through context.
type Metadata struct {
	Skip                   int                `json:"skip"`
	Top                    int                `json:"top"`
	Count                  int                `json:"count"`
	Filter                 string             `json:"filter"`
	Format                 string             `json:"format"`
	Metadata               bool               `json:"metadata"`
	OrderBy                map[string]string  `json:"orderby"`
	Select                 string             `json:"select"`
	EntityName             string             `json:"entityname"`
	Version                string             `json:"version"`
	URL                    string             `json:"url"`
	RunDate                time.Time          `json:"rundate"`
	DeprecationInformation map[string]*string `json:"DeprecationInformation"`
}

// MetadataResponse is the envelope returned for page 0, requested with
// $metadata=on so the total result count is known up front.
type MetadataResponse struct {
	Metadata Metadata          `json:"metadata"`
	Areas    []DeclarationArea `json:"FemaWebDeclarationAreas"`
}

// UnmarshalJSON decodes the first-page envelope strictly: the metadata block
// and its count field must be present and non-null. A lenient decode here
// would read an absent count as zero and quietly truncate the retrieval to
// page 0, so a shape mismatch fails the whole decode instead.
func (r *MetadataResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metadata response: %w", err)
	}

	meta, ok := raw["metadata"]
	if !ok || bytes.Equal(meta, []byte("null")) {
		return fmt.Errorf("metadata response: missing required field %q", "metadata")
	}

	var metaFields map[string]json.RawMessage
	if err := json.Unmarshal(meta, &metaFields); err != nil {
		return fmt.Errorf("metadata response: %w", err)
	}
	count, ok := metaFields["count"]
	if !ok || bytes.Equal(count, []byte("null")) {
		return fmt.Errorf("metadata response: missing required field %q", "count")
	}

	type plain MetadataResponse
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("metadata response: %w", err)
	}

	*r = MetadataResponse(p)
	return nil
}

// PageResponse is the envelope for every page after the first, requested with
// $metadata=off. It shares only the record array with MetadataResponse.
type PageResponse struct {
	Areas []DeclarationArea `json:"FemaWebDeclarationAreas"`
}
