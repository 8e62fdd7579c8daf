// Package xlsx renders survey listings as spreadsheets.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

const (
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	PendingSheet  = "Pending"
	ReviewedSheet = "Reviewed"
)

var surveyHeadings = []string{
	"id", "latitude", "longitude", "type_of_use", "number_of_users", "building_importance_category",
	"non_structural_falling_danger", "number_of_floors", "condition_of_structure", "year_of_construction",
	"previous_damages", "neighboring_buildings_impact", "soft_floor", "short_column", "created_at",
}

var reviewHeadings = []string{
	"review_id", "structural_system", "arrangement_walls", "irregular_vertical", "irregular_horizontal",
	"torsion_rotation", "structural_vulnerabilities", "heavy_finishes", "input_quality", "soil_class",
	"load_capacity_reduction", "constructed_area", "structure_performance", "retrofitting_methods",
	"reviewed_at", "reviewed_by",
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// WritePending writes one row per non-reviewed survey.
func (e *Exporter) WritePending(w io.Writer, surveys []domain.Survey) error {
	return writeSheet(w, PendingSheet, surveyHeadings, len(surveys), func(i int) []any {
		return surveyCells(&surveys[i])
	})
}

// WriteReviewed writes survey and review columns side by side. Tag columns use the
// comma-joined form.
func (e *Exporter) WriteReviewed(w io.Writer, rows []domain.ReviewedSurvey) error {
	headings := append(append([]string{}, surveyHeadings...), reviewHeadings...)
	return writeSheet(w, ReviewedSheet, headings, len(rows), func(i int) []any {
		return append(surveyCells(&rows[i].Survey), reviewCells(&rows[i].Review)...)
	})
}

// writeSheet streams a header row and n data rows into a single-sheet workbook.
func writeSheet(w io.Writer, sheet string, headings []string, n int, row func(i int) []any) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	if err := sw.SetPanes(&excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	header := make([]any, len(headings))
	for i, h := range headings {
		header[i] = h
	}
	if err := setRow(sw, 1, header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := setRow(sw, i+2, row(i)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush %s sheet: %w", sheet, err)
	}
	return f.Write(w)
}

func setRow(sw *excelize.StreamWriter, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := sw.SetRow(cell, cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func surveyCells(s *domain.Survey) []any {
	return []any{
		s.ID, s.Location.Latitude, s.Location.Longitude, string(s.TypeOfUse), string(s.NumberOfUsers),
		string(s.ImportanceCategory), string(s.NonStructuralFallingDanger), s.NumberOfFloors,
		string(s.ConditionOfStructure), s.YearOfConstruction, string(s.PreviousDamages),
		string(s.NeighboringBuildingsImpact), string(s.SoftFloor), string(s.ShortColumn),
		s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// reviewCells keeps the constructed area as its exact decimal text.
func reviewCells(r *domain.Review) []any {
	return []any{
		r.ID, string(r.StructuralSystem), string(r.ArrangementWalls), string(r.IrregularVertical),
		string(r.IrregularHorizontal), string(r.TorsionRotation), domain.JoinTags(r.StructuralVulnerabilities),
		string(r.HeavyFinishes), r.InputQuality, string(r.SoilClass), string(r.LoadCapacityReduction),
		r.ConstructedArea.String(), r.StructurePerformance, domain.JoinTags(r.RetrofittingMethods),
		r.ReviewedAt.Format("2006-01-02 15:04:05"), r.ReviewedBy,
	}
}
