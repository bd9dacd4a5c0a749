package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/demorefresh/pkg/dataset"
	"github.com/agentstation/demorefresh/pkg/reconciler"
	"github.com/agentstation/demorefresh/pkg/sources"
)

// Report summarizes one refresh run.
type Report struct {
	RunID       string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Output      string        `json:"output,omitempty" yaml:"output,omitempty"`
	JSOutput    string        `json:"js_output,omitempty" yaml:"js_output,omitempty"`
	DryRun      bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	GeneratedAt utc.Time      `json:"generated_at" yaml:"generated_at"`
	Duration    string        `json:"duration" yaml:"duration"`
	Stats       dataset.Stats `json:"stats" yaml:"stats"`
	Items       []ReportItem  `json:"items" yaml:"items"`
	Warnings    []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ReportItem is one reconciled item.
type ReportItem struct {
	Category string `json:"category" yaml:"category"`
	Item     string `json:"item" yaml:"item"`
	Tier     *int   `json:"tier,omitempty" yaml:"tier,omitempty"`
	Decision string `json:"decision" yaml:"decision"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
	Duration string `json:"duration" yaml:"duration"`
}

// NewReport builds a report from a reconciliation result.
func NewReport(result *reconciler.Result) Report {
	r := Report{
		GeneratedAt: result.Dataset.GeneratedAt,
		Duration:    result.Metadata.Duration.Round(time.Millisecond).String(),
		Stats:       result.Stats(),
		Items:       make([]ReportItem, 0, len(result.Events)),
	}
	for _, ev := range result.Events {
		r.Items = append(r.Items, ReportItem{
			Category: ev.Item.Category.String(),
			Item:     ev.Item.Identity.String(),
			Tier:     ev.Item.Tier,
			Decision: string(ev.Decision),
			Bytes:    ev.Bytes,
			Duration: ev.Duration.Round(time.Millisecond).String(),
		})
	}
	return r
}

// TableData implements Tabular.
func (r Report) TableData(wide bool) Data {
	headers := []string{"category", "item", "tier", "decision", "bytes"}
	align := []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft, AlignRight}
	if wide {
		headers = append(headers, "duration")
		align = append(align, AlignRight)
	}
	for i, h := range headers {
		headers[i] = Header(h)
	}

	rows := make([][]string, 0, len(r.Items))
	for _, item := range r.Items {
		row := []string{item.Category, item.Item, formatTier(item.Tier), item.Decision, strconv.Itoa(item.Bytes)}
		if wide {
			row = append(row, item.Duration)
		}
		rows = append(rows, row)
	}

	s := r.Stats
	footer := fmt.Sprintf("skills: %d fetched, %d cached, %d missing | memories: %d fetched, %d cached, %d missing",
		s.SkillsFetched, s.SkillsCached, s.SkillsFailed, s.MemoriesFetched, s.MemoriesCached, s.MemoriesFailed)
	switch {
	case r.DryRun:
		footer += " | dry run, nothing written"
	case r.Output != "":
		footer += " | wrote " + r.Output
		if r.JSOutput != "" {
			footer += ", " + r.JSOutput
		}
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align, Footer: footer}
}

// CatalogView lists the desired items of a sources document.
type CatalogView struct {
	Skills     []CatalogEntry `json:"skills" yaml:"skills"`
	Memories   []CatalogEntry `json:"memories" yaml:"memories"`
	MemoryOrgs []string       `json:"memory_orgs,omitempty" yaml:"memory_orgs,omitempty"`
	Warnings   []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// CatalogEntry is one desired item.
type CatalogEntry struct {
	Org  string `json:"org" yaml:"org"`
	Repo string `json:"repo" yaml:"repo"`
	Path string `json:"path" yaml:"path"`
	Tier *int   `json:"tier,omitempty" yaml:"tier,omitempty"`
}

// NewCatalogView builds a view of catalog.
func NewCatalogView(catalog *sources.Catalog, warnings []string) CatalogView {
	entries := func(items []sources.Item) []CatalogEntry {
		out := make([]CatalogEntry, 0, len(items))
		for _, item := range items {
			out = append(out, CatalogEntry{Org: item.Org, Repo: item.Repo, Path: item.Path, Tier: item.Tier})
		}
		return out
	}
	return CatalogView{
		Skills:     entries(catalog.Skills),
		Memories:   entries(catalog.Memories),
		MemoryOrgs: catalog.MemoryOrgs,
		Warnings:   warnings,
	}
}

// TableData implements Tabular.
func (v CatalogView) TableData(_ bool) Data {
	headers := []string{Header("category"), Header("org"), Header("repo"), Header("path"), Header("tier")}
	var rows [][]string
	for _, e := range v.Skills {
		rows = append(rows, []string{sources.CategorySkill.String(), e.Org, e.Repo, e.Path, formatTier(e.Tier)})
	}
	for _, e := range v.Memories {
		rows = append(rows, []string{sources.CategoryMemory.String(), e.Org, e.Repo, e.Path, formatTier(e.Tier)})
	}

	footer := fmt.Sprintf("%d skills, %d memories", len(v.Skills), len(v.Memories))
	if len(v.MemoryOrgs) > 0 {
		footer += fmt.Sprintf(", %d memory orgs to discover", len(v.MemoryOrgs))
	}
	return Data{Headers: headers, Rows: rows, Footer: footer}
}

func formatTier(tier *int) string {
	if tier == nil {
		return "-"
	}
	return strconv.Itoa(*tier)
}
