package app

import (
	"strings"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/colmap"
	"github.com/opgrid/rtacgen/internal/tagmap"
	"github.com/opgrid/rtacgen/internal/workbook"
	"github.com/spf13/cast"
)

// Workbook layout: a Definitions sheet points at the RTAC and SCADA sheets
// and names the IED template sheet prefix. Inside the RTAC/SCADA/IED sheets
// sections start at a marker cell in the first column and run until a blank
// row or the next marker.
const (
	defsSheetName = "Definitions"

	keyRtacSheet      = "RtacSheet"
	keyScadaSheet     = "ScadaSheet"
	keyIedSheetPrefix = "IedSheetPrefix"

	markerServerTagPrototypes = "#SERVER_TAG_PROTOTYPES"
	markerIedTagTypes         = "#IED_TAG_TYPES"
	markerAliasSubstitutions  = "#ALIAS_SUBSTITUTIONS"
	markerAliasTemplate       = "#ALIAS_TEMPLATE"
	markerQualityCheck        = "#QUALITY_CHECK"
	markerTagProcessorColumns = "#TAG_PROCESSOR_COLUMNS"
	markerPointType           = "#POINT_TYPE"
	markerOffsets             = "#OFFSETS"
	markerDevices             = "#DEVICES"
	markerPoints              = "#POINTS"
)

type definitions struct {
	RtacSheet      string
	ScadaSheet     string
	IedSheetPrefix string
}

func readDefinitions(w *workbook.Workbook) (definitions, error) {
	s, err := w.Sheet(defsSheetName)
	if err != nil {
		return definitions{}, err
	}
	kv := map[string]string{}
	for r := 0; r < s.RowCount(); r++ {
		if k := s.Cell(r, 0); k != "" {
			kv[k] = s.Cell(r, 1)
		}
	}
	d := definitions{
		RtacSheet:      kv[keyRtacSheet],
		ScadaSheet:     kv[keyScadaSheet],
		IedSheetPrefix: kv[keyIedSheetPrefix],
	}
	for k, v := range map[string]string{
		keyRtacSheet:      d.RtacSheet,
		keyScadaSheet:     d.ScadaSheet,
		keyIedSheetPrefix: d.IedSheetPrefix,
	} {
		if v == "" {
			return definitions{}, merry.Errorf("sheet %s: missing pointer %s", defsSheetName, k)
		}
	}
	return d, nil
}

func rowBlank(s *workbook.Sheet, r int) bool {
	if r >= s.RowCount() {
		return true
	}
	for _, c := range s.Cells[r] {
		if c != "" {
			return false
		}
	}
	return true
}

// sectionRows returns the data rows following the given marker. The second
// return is false when the sheet has no such marker.
func sectionRows(s *workbook.Sheet, marker string) ([][]string, bool) {
	for r := 0; r < s.RowCount(); r++ {
		if s.Cell(r, 0) != marker {
			continue
		}
		var rows [][]string
		for i := r + 1; i < s.RowCount(); i++ {
			if rowBlank(s, i) || strings.HasPrefix(s.Cell(i, 0), "#") {
				break
			}
			rows = append(rows, s.Cells[i])
		}
		return rows, true
	}
	return nil, false
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func loadRtacTemplate(s *workbook.Sheet, rtac *tagmap.RtacTemplate) (tagmap.TagProcessorLayout, error) {
	layout := tagmap.DefaultTagProcessorLayout()

	rows, f := sectionRows(s, markerServerTagPrototypes)
	if !f {
		return layout, merry.Errorf("sheet %s: missing %s section", s.Name, markerServerTagPrototypes)
	}
	for _, row := range rows {
		err := rtac.AddTagPrototypeEntry(
			cellAt(row, 0), cellAt(row, 1), cellAt(row, 2), cellAt(row, 3),
			cellAt(row, 4), cellAt(row, 5), cellAt(row, 6), cellAt(row, 7))
		if err != nil {
			return layout, merry.Prependf(err, "sheet %s", s.Name)
		}
	}

	rows, f = sectionRows(s, markerIedTagTypes)
	if !f {
		return layout, merry.Errorf("sheet %s: missing %s section", s.Name, markerIedTagTypes)
	}
	for _, row := range rows {
		if err := rtac.RegisterIedTagType(cellAt(row, 0), cellAt(row, 1)); err != nil {
			return layout, merry.Prependf(err, "sheet %s", s.Name)
		}
	}

	if rows, f = sectionRows(s, markerAliasSubstitutions); f {
		for _, row := range rows {
			rtac.AliasSubstitutions = append(rtac.AliasSubstitutions,
				colmap.Replacement{Token: cellAt(row, 0), Value: cellAt(row, 1)})
		}
	}

	if rows, f = sectionRows(s, markerAliasTemplate); f && len(rows) > 0 {
		rtac.AliasTemplate = cellAt(rows[0], 0)
		rtac.ControlSuffix = cellAt(rows[0], 1)
	}

	if rows, f = sectionRows(s, markerQualityCheck); f && len(rows) > 0 {
		rtac.QualityCheckTemplate = cellAt(rows[0], 0)
	}

	if rows, f = sectionRows(s, markerTagProcessorColumns); f {
		l, err := parseTagProcessorLayout(rows)
		if err != nil {
			return layout, merry.Prependf(err, "sheet %s", s.Name)
		}
		layout = l
	}
	return layout, nil
}

// parseTagProcessorLayout reads rows of [field, column index, header text]
// declaring where each tag processor field lands in the output CSV.
func parseTagProcessorLayout(rows [][]string) (tagmap.TagProcessorLayout, error) {
	l := tagmap.TagProcessorLayout{
		DestTagCol: -1, DestTypeCol: -1, SourceExprCol: -1,
		SourceTypeCol: -1, TimeSourceCol: -1, QualitySourceCol: -1,
	}
	type colDef struct {
		col    int
		header string
	}
	var defs []colDef
	maxCol := -1
	for _, row := range rows {
		field := cellAt(row, 0)
		col, err := cast.ToIntE(cellAt(row, 1))
		if err != nil || col < 0 {
			return l, merry.Errorf("tag processor column %q: invalid column index %q", field, cellAt(row, 1))
		}
		switch field {
		case "DestinationTag":
			l.DestTagCol = col
		case "DestinationType":
			l.DestTypeCol = col
		case "SourceExpression":
			l.SourceExprCol = col
		case "SourceType":
			l.SourceTypeCol = col
		case "TimeSource":
			l.TimeSourceCol = col
		case "QualitySource":
			l.QualitySourceCol = col
		default:
			return l, merry.Errorf("unknown tag processor field %q", field)
		}
		defs = append(defs, colDef{col, cellAt(row, 2)})
		if col > maxCol {
			maxCol = col
		}
	}
	if l.SourceExprCol < 0 || l.DestTagCol < 0 {
		return l, merry.New("tag processor layout must place at least DestinationTag and SourceExpression")
	}
	l.Header = make([]string, maxCol+1)
	for _, d := range defs {
		l.Header[d.col] = d.header
	}
	return l, nil
}

func loadScadaTemplate(s *workbook.Sheet, scada *tagmap.ScadaTemplate) error {
	found := false
	for r := 0; r < s.RowCount(); r++ {
		if s.Cell(r, 0) != markerPointType {
			continue
		}
		found = true
		name := s.Cell(r, 1)
		keyFormat := s.Cell(r, 2)
		sorting, err := cast.ToIntE(s.Cell(r, 3))
		if err != nil {
			return merry.Errorf("sheet %s: point type %s: invalid sorting column %q", s.Name, name, s.Cell(r, 3))
		}
		offset := 0
		if v := s.Cell(r, 4); v != "" {
			if offset, err = cast.ToIntE(v); err != nil {
				return merry.Errorf("sheet %s: point type %s: invalid address offset %q", s.Name, name, v)
			}
		}
		if r+3 >= s.RowCount() {
			return merry.Errorf("sheet %s: point type %s: truncated prototype block", s.Name, name)
		}
		header := trimTrailingBlanks(s.Cells[r+1])
		if len(header) == 0 {
			return merry.Errorf("sheet %s: point type %s: empty header row", s.Name, name)
		}
		err = scada.AddPrototype(name, header, s.Cell(r+2, 0), s.Cell(r+3, 0), keyFormat, sorting, offset)
		if err != nil {
			return merry.Prependf(err, "sheet %s", s.Name)
		}
	}
	if !found {
		return merry.Errorf("sheet %s: no %s sections", s.Name, markerPointType)
	}
	return nil
}

func trimTrailingBlanks(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}

func loadIedTemplate(s *workbook.Sheet, rtac *tagmap.RtacTemplate) (*tagmap.IedTemplate, error) {
	t := tagmap.NewIedTemplate(s.Name)

	rows, f := sectionRows(s, markerOffsets)
	if !f {
		return nil, merry.Errorf("sheet %s: missing %s section", s.Name, markerOffsets)
	}
	for _, row := range rows {
		root := cellAt(row, 0)
		offset, err := cast.ToIntE(cellAt(row, 1))
		if err != nil || offset < 0 {
			return nil, merry.Errorf("sheet %s: invalid offset %q for server tag type %s", s.Name, cellAt(row, 1), root)
		}
		t.Offsets[root] = offset
	}

	rows, f = sectionRows(s, markerDevices)
	if !f {
		return nil, merry.Errorf("sheet %s: missing %s section", s.Name, markerDevices)
	}
	for _, row := range rows {
		ied, scada := cellAt(row, 0), cellAt(row, 1)
		if ied == "" || scada == "" {
			return nil, merry.Errorf("sheet %s: device pair with blank name", s.Name)
		}
		t.Devices = append(t.Devices, tagmap.IedScadaNamePair{IedName: ied, ScadaName: scada})
	}

	rows, f = sectionRows(s, markerPoints)
	if !f {
		return nil, merry.Errorf("sheet %s: missing %s section", s.Name, markerPoints)
	}
	if len(rows) > 0 {
		rows = rows[1:] // column header row
	}
	for _, row := range rows {
		if err := loadPointRow(t, rtac, row); err != nil {
			return nil, merry.Prependf(err, "sheet %s", s.Name)
		}
	}
	return t, nil
}

// loadPointRow streams one raw point row into the template. Rows sharing
// (point number, root type, filter) accumulate onto one logical point.
func loadPointRow(t *tagmap.IedTemplate, rtac *tagmap.RtacTemplate, row []string) error {
	process := cellAt(row, 0)
	if process == "" || process == "0" || strings.EqualFold(process, "no") {
		return nil
	}

	filter, err := tagmap.ParseFilter(cellAt(row, 1))
	if err != nil {
		return err
	}

	numberText := cellAt(row, 2)
	absolute := strings.HasPrefix(numberText, "=")
	number, err := cast.ToIntE(strings.TrimPrefix(numberText, "="))
	if err != nil {
		return merry.Errorf("invalid point number %q", numberText)
	}

	iedTagName := cellAt(row, 3)
	iedTagType := cellAt(row, 4)
	if iedTagName == "" || iedTagType == "" {
		return merry.Errorf("point %s: IED tag name and type are required", numberText)
	}

	entry, err := t.GetOrCreateTagEntry(iedTagType, filter, number, absolute, rtac)
	if err != nil {
		return err
	}
	entry.Tags = append(entry.Tags, tagmap.IedTagPair{Name: iedTagName, TypeName: iedTagType})

	if err := setOverride(&entry.RtacColumnsText, cellAt(row, 5), "RTAC columns", number); err != nil {
		return err
	}
	if err := setOverride(&entry.ScadaPointName, cellAt(row, 6), "SCADA point name", number); err != nil {
		return err
	}
	return setOverride(&entry.ScadaColumnsText, cellAt(row, 7), "SCADA columns", number)
}

func setOverride(target *string, value, what string, pointNumber int) error {
	if value == "" {
		return nil
	}
	if *target != "" && *target != value {
		return merry.Errorf("point %d: conflicting %s: %q and %q", pointNumber, what, *target, value)
	}
	*target = value
	return nil
}
