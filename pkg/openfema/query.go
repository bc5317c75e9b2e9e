package openfema

import (
	"fmt"
	"net/url"
	"time"
)

// BaseURL is the public FemaWebDeclarationAreas endpoint.
const BaseURL = "https://www.fema.gov/api/open/v1/FemaWebDeclarationAreas"

// PageSize is the server's documented maximum (and default) page size.
const PageSize = 1000

// selectFields trims the response to the fields the record model keeps.
// closeoutDate is excluded: the filter already restricts to records where it
// is null.
const selectFields = "disasterNumber,programTypeCode,programTypeDescription," +
	"stateCode,placeCode,placeName,designatedDate,entryDate,updateDate," +
	"hash,lastRefresh"

// cutoffFormat renders timestamps as RFC 3339 with millisecond precision in
// UTC, the form the OpenFEMA filter grammar expects.
const cutoffFormat = "2006-01-02T15:04:05.000Z"

// Query builds the fixed query string for the declaration-area retrieval:
// inline count on every page, the trimmed field list, and a filter selecting
// declarations designated after cutoff that have not been closed out. The
// filter expression is percent-encoded for transport.
func Query(cutoff time.Time) string {
	filter := fmt.Sprintf("designatedDate gt'%s' and closeoutDate eq null",
		cutoff.UTC().Format(cutoffFormat))
	return fmt.Sprintf("$inlinecount=allpages&$select=%s&$filter=%s",
		selectFields, url.QueryEscape(filter))
}

// PageURL builds the request URL for one page. Pages are zero-indexed; the
// skip offset is page*size. A size of zero or less omits the $skip/$top pair
// entirely, requesting the server default window.
//
// The inputs are concatenated as-is: a malformed base or query yields a
// malformed URL, and the transport layer reports the failure.
func PageURL(withMetadata bool, base, query string, page, size int) string {
	metadata := "off"
	if withMetadata {
		metadata = "on"
	}
	if size > 0 {
		return fmt.Sprintf("%s?%s&$skip=%d&$top=%d&$metadata=%s",
			base, query, page*size, size, metadata)
	}
	return fmt.Sprintf("%s?%s&$metadata=%s", base, query, metadata)
}
