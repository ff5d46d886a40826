package queue

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/leafgrid/catalog-sync/internal/model"
)

var exportHeader = []string{
	"ID", "Status", "Produktname", "Match Info", "Hersteller", "THC", "CBD",
	"Genetik", "Kultivar", "Herkunft", "Bestrahlung", "Effekte", "Aromen",
	"Terpene", "URL", "Erstellt",
}

// ExportXLSX writes queue entries into a spreadsheet for offline review.
func ExportXLSX(entries []model.QueueEntry, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Import Queue")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportHeader {
		header.AddCell().SetString(col)
	}

	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetInt64(e.ID)
		row.AddCell().SetString(string(e.Status))
		row.AddCell().SetString(e.ProductName)
		row.AddCell().SetString(e.MatchInfo)
		row.AddCell().SetString(e.Scraped.Manufacturer)
		row.AddCell().SetString(e.Scraped.THC)
		row.AddCell().SetString(e.Scraped.CBD)
		row.AddCell().SetString(e.Scraped.Genetic)
		row.AddCell().SetString(e.Scraped.Cultivar)
		row.AddCell().SetString(e.Scraped.Origin)
		row.AddCell().SetString(e.Scraped.Irradiation)
		row.AddCell().SetString(strings.Join(e.Scraped.Effects, ", "))
		row.AddCell().SetString(strings.Join(e.Scraped.Aromas, ", "))
		row.AddCell().SetString(strings.Join(e.Scraped.Terpenes, ", "))
		row.AddCell().SetString(e.URL)
		row.AddCell().SetString(e.CreatedAt.Format(time.RFC3339))
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
