// Package export writes the paper store to a flat spreadsheet.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/paperdesk/paperdesk/internal/model"
)

var header = []string{
	"arxiv_id", "title", "authors", "abstract", "arxiv_time",
	"llm_score", "llm_explanation", "user_score", "user_explanation",
	"lineup_score", "lineup_metrics", "db_updated",
}

// WriteXLSX writes all papers to an XLSX file at path, one row per paper
// with authors joined into a single cell. Output-only; nothing reads it back.
func WriteXLSX(path string, papers []model.Paper) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("papers")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}

	for i := range papers {
		if err := addPaperRow(sheet, &papers[i]); err != nil {
			return err
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addPaperRow(sheet *xlsx.Sheet, p *model.Paper) error {
	row := sheet.AddRow()
	row.AddCell().SetString(p.ArxivID)
	row.AddCell().SetString(p.Title)
	row.AddCell().SetString(strings.Join(p.Authors, ", "))
	row.AddCell().SetString(p.Abstract)
	row.AddCell().SetString(p.ArxivTime.Format("2006-01-02 15:04:05"))

	addFloatCell(row, p.LLMScore)
	row.AddCell().SetString(p.LLMExplanation)
	addFloatCell(row, p.UserScore)
	row.AddCell().SetString(p.UserExplanation)
	addFloatCell(row, p.LineupScore)

	metricsCell := row.AddCell()
	if p.LineupMetrics != nil {
		blob, err := json.Marshal(p.LineupMetrics)
		if err != nil {
			return eris.Wrapf(err, "export: marshal metrics for %s", p.ArxivID)
		}
		metricsCell.SetString(string(blob))
	}

	row.AddCell().SetString(p.DBUpdated.Format("2006-01-02 15:04:05"))
	return nil
}

func addFloatCell(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetString(fmt.Sprintf("%.2f", *v))
	}
}
