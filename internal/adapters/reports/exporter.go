// Package reports renders compliance report templates over the traceability
// store and archives the results as blob artifacts.
package reports

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"fibretrace/internal/core"
	"fibretrace/internal/infra/blob"
	"fibretrace/pkg/domain"
)

// Export runs are recorded in the audit trail under this actor; the report
// surface carries no caller identity.
const exportActor = "system"

const actionExportReport = "EXPORT_REPORT"

// Format identifies a rendered report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Column describes one field of a report row.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Template describes a report available for rendering.
type Template struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
}

// Report template keys.
const (
	TemplateLineageManifest   = "lineage-manifest"
	TemplateMaterialBreakdown = "material-breakdown"
)

var templates = []Template{
	{
		Key:         TemplateLineageManifest,
		Title:       "Lineage Manifest",
		Description: "Every fibre pack with its full resolved ancestry.",
		Columns: []Column{
			{Name: "fibre_pack_id", Type: "string"},
			{Name: "created_at", Type: "timestamp"},
			{Name: "created_by", Type: "string"},
			{Name: "weight_kg", Type: "float"},
			{Name: "material", Type: "string"},
			{Name: "color", Type: "string"},
			{Name: "brands", Type: "string"},
			{Name: "sorted_pack_ids", Type: "string"},
			{Name: "inbound_batch_ids", Type: "string"},
			{Name: "suppliers", Type: "string"},
		},
	},
	{
		Key:         TemplateMaterialBreakdown,
		Title:       "Material Breakdown",
		Description: "Total sorted weight per material.",
		Columns: []Column{
			{Name: "material", Type: "string"},
			{Name: "total_weight_kg", Type: "float"},
		},
	},
}

// Templates returns the report catalog sorted by key.
func Templates() []Template {
	out := append([]Template(nil), templates...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ResolveTemplate looks up a template by key.
func ResolveTemplate(key string) (Template, bool) {
	for _, t := range templates {
		if t.Key == key {
			return t, true
		}
	}
	return Template{}, false
}

// RunResult holds the rendered rows of one report run.
type RunResult struct {
	Template    Template         `json:"template"`
	Rows        []map[string]any `json:"rows"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Artifact describes a stored report rendering.
type Artifact struct {
	Key         string    `json:"key"`
	Template    string    `json:"template"`
	Format      Format    `json:"format"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Exporter renders report templates from store snapshots and archives them.
type Exporter struct {
	store core.PersistentStore
	blobs blob.Store
	nowFn func() time.Time
}

// NewExporter constructs an exporter. The blob store may be nil when only
// inline rendering is needed.
func NewExporter(store core.PersistentStore, blobs blob.Store) *Exporter {
	return &Exporter{
		store: store,
		blobs: blobs,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the exporter clock; used by tests.
func (e *Exporter) SetNowFunc(now func() time.Time) {
	if now != nil {
		e.nowFn = now
	}
}

// Run renders a report template against the current snapshot.
func (e *Exporter) Run(ctx context.Context, key string) (RunResult, error) {
	template, ok := ResolveTemplate(key)
	if !ok {
		return RunResult{}, fmt.Errorf("report template %s not found", key)
	}
	var rows []map[string]any
	err := e.store.View(ctx, func(view core.TransactionView) error {
		switch key {
		case TemplateLineageManifest:
			rows = lineageManifestRows(view)
		case TemplateMaterialBreakdown:
			rows = materialBreakdownRows(view)
		}
		return nil
	})
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Template: template, Rows: rows, GeneratedAt: e.nowFn()}, nil
}

// Export renders a template in the requested formats and writes each
// rendering to the blob store under reports/<template>/.
func (e *Exporter) Export(ctx context.Context, key string, formats []Format) ([]Artifact, error) {
	if e.blobs == nil {
		return nil, fmt.Errorf("blob store not configured")
	}
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	result, err := e.Run(ctx, key)
	if err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(formats))
	seen := make(map[Format]struct{}, len(formats))
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		payload, contentType, err := render(result, format)
		if err != nil {
			return nil, err
		}
		blobKey := fmt.Sprintf("reports/%s/%s-%s.%s", key, e.nowFn().Format("20060102T150405Z"), randomSuffix(), format)
		info, err := e.blobs.Put(ctx, blobKey, bytes.NewReader(payload), blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"template": key, "rows": fmt.Sprint(len(result.Rows))},
		})
		if err != nil {
			return nil, fmt.Errorf("store report artifact: %w", err)
		}
		artifacts = append(artifacts, Artifact{
			Key:         info.Key,
			Template:    key,
			Format:      format,
			ContentType: contentType,
			SizeBytes:   info.Size,
			URL:         info.URL,
			CreatedAt:   info.LastModified,
		})
	}
	if err := e.recordExport(ctx, key, artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (e *Exporter) recordExport(ctx context.Context, key string, artifacts []Artifact) error {
	names := make([]string, len(artifacts))
	for i, artifact := range artifacts {
		names[i] = string(artifact.Format)
	}
	_, err := e.store.RunInTransaction(ctx, func(tx core.Transaction) error {
		tx.AppendAuditLog(domain.AuditLogEntry{
			ID:        fmt.Sprintf("log-%d-%s", e.nowFn().UnixMilli(), randomSuffix()),
			Timestamp: e.nowFn(),
			ActorID:   exportActor,
			Action:    actionExportReport,
			Details:   fmt.Sprintf("Exported report %s as %s", key, strings.Join(names, ", ")),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("record export audit entry: %w", err)
	}
	return nil
}

// ListArtifacts returns stored artifacts for one template, or all templates
// when key is empty.
func (e *Exporter) ListArtifacts(ctx context.Context, key string) ([]blob.Info, error) {
	if e.blobs == nil {
		return nil, fmt.Errorf("blob store not configured")
	}
	prefix := "reports/"
	if key != "" {
		prefix += key + "/"
	}
	return e.blobs.List(ctx, prefix)
}

func lineageManifestRows(view core.TransactionView) []map[string]any {
	packs := view.ListFibrePacks()
	rows := make([]map[string]any, 0, len(packs))
	for _, pack := range packs {
		chain, ok := core.ResolveChain(view, pack.ID)
		if !ok {
			continue
		}
		sortedIDs := make([]string, 0, len(chain.Parents))
		for _, parent := range chain.Parents {
			sortedIDs = append(sortedIDs, parent.ItemID())
		}
		inboundIDs := make([]string, 0, len(chain.Grandparents))
		suppliers := make([]string, 0, len(chain.Grandparents))
		for _, batch := range chain.Grandparents {
			inboundIDs = append(inboundIDs, batch.ID)
			suppliers = append(suppliers, batch.Supplier)
		}
		rows = append(rows, map[string]any{
			"fibre_pack_id":     pack.ID,
			"created_at":        pack.CreatedAt,
			"created_by":        pack.CreatedBy,
			"weight_kg":         pack.WeightKg,
			"material":          pack.Material,
			"color":             pack.Color,
			"brands":            strings.Join(pack.Brands, ";"),
			"sorted_pack_ids":   strings.Join(sortedIDs, ";"),
			"inbound_batch_ids": strings.Join(inboundIDs, ";"),
			"suppliers":         strings.Join(suppliers, ";"),
		})
	}
	return rows
}

func materialBreakdownRows(view core.TransactionView) []map[string]any {
	breakdown := core.MaterialBreakdown(view.ListItems())
	rows := make([]map[string]any, 0, len(breakdown))
	for _, bucket := range breakdown {
		rows = append(rows, map[string]any{
			"material":        bucket.Material,
			"total_weight_kg": bucket.TotalWeightKg,
		})
	}
	return rows
}

func render(result RunResult, format Format) (payload []byte, contentType string, err error) {
	switch format {
	case FormatJSON:
		payload, err = json.Marshal(result)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return payload, "application/json", nil
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		headers := make([]string, len(result.Template.Columns))
		for i, column := range result.Template.Columns {
			headers[i] = column.Name
		}
		if err := writer.Write(headers); err != nil {
			return nil, "", err
		}
		for _, row := range result.Rows {
			record := make([]string, len(result.Template.Columns))
			for i, column := range result.Template.Columns {
				record[i] = formatValue(row[column.Name])
			}
			if err := writer.Write(record); err != nil {
				return nil, "", err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("unsupported report format %s", format)
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case float32:
		return fmt.Sprintf("%g", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprint(v)
	}
}

func randomSuffix() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
