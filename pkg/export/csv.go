// Package export writes collected declaration-area records to disk.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcaveniathor/fema-web-declaration/pkg/logging"
	"github.com/mcaveniathor/fema-web-declaration/pkg/openfema"
)

// Header lists the CSV columns, matching the record fields in struct order.
var Header = []string{
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

// CSVExporter writes records to a CSV file, one row per record.
type CSVExporter struct {
	path   string
	logger zerolog.Logger
}

// NewCSV creates an exporter targeting path.
func NewCSV(path string) *CSVExporter {
	return &CSVExporter{
		path:   path,
		logger: logging.NewLogger("exporter"),
	}
}

// Export writes the header and every record in collection order. Any create,
// encode, or flush failure surfaces immediately. The caller only invokes
// Export after the full retrieval succeeded, so a failed run never leaves a
// partially exported dataset behind as a success.
func (e *CSVExporter) Export(areas []openfema.DeclarationArea) error {
	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", e.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, area := range areas {
		if err := w.Write(record(area)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", e.path, err)
	}

	e.logger.Info().Str("path", e.path).Int("entries", len(areas)).Msg("Entries written to file")
	return nil
}

// record renders one area as a CSV row in Header order.
func record(a openfema.DeclarationArea) []string {
	return []string{
		strconv.Itoa(a.DisasterNumber),
		a.ProgramTypeCode,
		a.ProgramTypeDescription,
		a.StateCode,
		a.PlaceCode,
		a.PlaceName,
		a.DesignatedDate.Format(time.RFC3339Nano),
		a.EntryDate.Format(time.RFC3339Nano),
		a.UpdateDate.Format(time.RFC3339Nano),
		a.Hash,
		a.LastRefresh.Format(time.RFC3339Nano),
		a.ID,
	}
}
