package app

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/ansel1/merry"
	"github.com/opgrid/rtacgen/internal/csvout"
	"github.com/opgrid/rtacgen/internal/tagmap"
	"github.com/opgrid/rtacgen/internal/workbook"
)

// GenerationContext owns all state of one generation run. It is created by
// Generate, threaded through the phases in order and never aliased: there is
// no shared state across runs.
type GenerationContext struct {
	Settings Settings
	Workbook *workbook.Workbook
	Defs     definitions

	Rtac   *tagmap.RtacTemplate
	Scada  *tagmap.ScadaTemplate
	Layout tagmap.TagProcessorLayout

	Templates  []*tagmap.IedTemplate
	MapEntries []*tagmap.MapEntry
}

type phase struct {
	Name string
	Run  func(*GenerationContext) error
}

// Generate runs the whole pipeline against one workbook. Any failure aborts
// the run before a single output file is touched: a half generated protocol
// script is worse than none.
func Generate(workbookPath string) error {
	settings, err := loadSettings()
	if err != nil {
		return merry.Prepend(err, "load settings")
	}
	ctx := &GenerationContext{
		Settings: settings,
		Rtac:     tagmap.NewRtacTemplate(),
		Scada:    tagmap.NewScadaTemplate(settings.MaxScadaNameLength),
		Layout:   tagmap.DefaultTagProcessorLayout(),
	}

	phases := []phase{
		{"open workbook", func(c *GenerationContext) (err error) {
			c.Workbook, err = workbook.Load(workbookPath)
			return
		}},
		{"read definitions", func(c *GenerationContext) (err error) {
			c.Defs, err = readDefinitions(c.Workbook)
			return
		}},
		{"load RTAC template", loadRtac},
		{"validate server tag prototypes", func(c *GenerationContext) error {
			return c.Rtac.ValidateTagPrototypes()
		}},
		{"load SCADA template", loadScada},
		{"load IED templates", loadIedTemplates},
		{"validate IED templates", validateIedTemplates},
		{"expand points", expandTemplates},
		{"apply quality wrapping", applyQualityWrapping},
		{"write output files", writeOutputs},
	}
	for _, p := range phases {
		log.Debug("phase: " + p.Name)
		if err := p.Run(ctx); err != nil {
			return merry.Prependf(err, "%s", p.Name)
		}
	}

	log.Info("generation finished",
		"templates", len(ctx.Templates),
		"tag_processor_entries", len(ctx.MapEntries),
		"longest_scada_name", ctx.Scada.LongestValidatedName(),
	)
	return nil
}

func loadRtac(c *GenerationContext) error {
	s, err := c.Workbook.Sheet(c.Defs.RtacSheet)
	if err != nil {
		return err
	}
	c.Layout, err = loadRtacTemplate(s, c.Rtac)
	return err
}

func loadScada(c *GenerationContext) error {
	s, err := c.Workbook.Sheet(c.Defs.ScadaSheet)
	if err != nil {
		return err
	}
	return loadScadaTemplate(s, c.Scada)
}

// loadIedTemplates reads every sheet carrying the IED prefix, excluding the
// three special sheets. Sheet order in the workbook is generation order.
func loadIedTemplates(c *GenerationContext) error {
	for _, s := range c.Workbook.Sheets {
		if !strings.HasPrefix(s.Name, c.Defs.IedSheetPrefix) {
			continue
		}
		if s.Name == defsSheetName || s.Name == c.Defs.RtacSheet || s.Name == c.Defs.ScadaSheet {
			continue
		}
		t, err := loadIedTemplate(s, c.Rtac)
		if err != nil {
			return err
		}
		log.Debug("IED template loaded", "sheet", s.Name,
			"devices", len(t.Devices), "points", len(t.Points))
		c.Templates = append(c.Templates, t)
	}
	if len(c.Templates) == 0 {
		return merry.Errorf("workbook has no IED template sheets with prefix %q", c.Defs.IedSheetPrefix)
	}
	return nil
}

// validateIedTemplates runs before any expansion: validation depends on the
// complete cross template name and offset picture.
func validateIedTemplates(c *GenerationContext) error {
	for _, t := range c.Templates {
		if err := t.Validate(c.Rtac); err != nil {
			return err
		}
	}
	return nil
}

func expandTemplates(c *GenerationContext) error {
	x := &tagmap.Expander{Rtac: c.Rtac, Scada: c.Scada}
	for _, t := range c.Templates {
		entries, err := x.ExpandTemplate(t)
		if err != nil {
			return err
		}
		c.MapEntries = append(c.MapEntries, entries...)
	}
	return nil
}

func applyQualityWrapping(c *GenerationContext) error {
	template := c.Rtac.QualityCheckTemplate
	if template == "" {
		template = c.Settings.QualityCheckTemplate
	}
	g := tagmap.QualityWrapGenerator{
		Mode:          c.Settings.WrapMode(),
		CheckTemplate: template,
	}
	entries, err := g.Apply(c.MapEntries)
	if err != nil {
		return err
	}
	c.MapEntries = entries
	return nil
}

// writeOutputs renders and writes the three output families next to the
// input workbook. It runs last: everything before it is in memory only.
func writeOutputs(c *GenerationContext) error {
	base := strings.TrimSuffix(c.Workbook.Path, filepath.Ext(c.Workbook.Path))

	records := c.Layout.Render(c.MapEntries)
	if err := csvout.WriteFile(base+"_TagProcessor.csv", records); err != nil {
		return err
	}

	for _, name := range c.Scada.PointTypeNames() {
		rows := c.Scada.Rows(name)
		if len(rows) == 0 {
			continue
		}
		proto, err := c.Scada.Prototype(name)
		if err != nil {
			return err
		}
		records, err := tagmap.RenderTable(proto.Header, proto.DefaultsText, proto.SortingColumn, rows)
		if err != nil {
			return merry.Prependf(err, "SCADA tags %s", name)
		}
		if err := csvout.WriteFile(base+"_ScadaTags_"+name+".csv", records); err != nil {
			return err
		}
	}

	roots := append([]string(nil), c.Rtac.RootTypes()...)
	sort.Strings(roots)
	for _, root := range roots {
		rows := c.Rtac.Rows(root)
		if len(rows) == 0 {
			continue
		}
		proto, err := c.Rtac.Prototype(root)
		if err != nil {
			return err
		}
		records, err := tagmap.RenderTable(proto.Header, proto.DefaultsText, proto.SortingColumn, rows)
		if err != nil {
			return merry.Prependf(err, "RTAC server tags %s", root)
		}
		if err := csvout.WriteFile(base+"_RtacServerTags_"+root+".csv", records); err != nil {
			return err
		}
	}
	return nil
}
