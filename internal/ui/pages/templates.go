package pages

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

// CategoryColors are the effect category badge colours.
var CategoryColors = map[entity.EffectCategory]string{
	entity.CategoryPhysiological: "#e15759",
	entity.CategoryPsychological: "#4e79a7",
	entity.CategoryCognitive:     "#59a14f",
	entity.CategoryPerceptual:    "#b07aa1",
	entity.CategoryTherapeutic:   "#f28e2b",
}

const uncategorizedColor = "#9e9e9e"

// CategoryColor returns the badge colour of c.
func CategoryColor(c entity.EffectCategory) string {
	if col, ok := CategoryColors[c]; ok {
		return col
	}
	return uncategorizedColor
}

// StructureImagePath is where the API serves a molecule's 2D depiction.
func StructureImagePath(id string) string {
	return "/api/molecules/" + url.PathEscape(id) + "/structure.png"
}

type row struct {
	Label string
	Value string
}

type prop struct {
	Key   string
	Value string
}

type refList struct {
	Title string
	Kind  common.Kind
	Refs  []entity.Ref
}

var funcs = template.FuncMap{
	"num":       formatFloat,
	"int":       formatInt,
	"row":       func(label, value string) row { return row{Label: label, Value: value} },
	"props":     sortedProps,
	"refs":      func(title string, kind common.Kind, refs []entity.Ref) refList { return refList{title, kind, refs} },
	"chunk":     chunk,
	"color":     CategoryColor,
	"structure": StructureImagePath,
}

var views = template.Must(template.New("pages").Funcs(funcs).Parse(`
{{define "row"}}{{if .Value}}<dt>{{.Label}}</dt><dd>{{.Value}}</dd>{{end}}{{end}}

{{define "props"}}{{with props .}}<section class="hb-properties"><h3>Properties</h3><dl>{{range .}}<dt>{{.Key}}</dt><dd>{{.Value}}</dd>{{end}}</dl></section>{{end}}{{end}}

{{define "refs"}}{{if .Refs}}<section class="hb-related"><h3>{{.Title}}</h3><ul>{{range .Refs}}<li><a href="/{{$.Kind.Plural}}?id={{.ID}}">{{if .Name}}{{.Name}}{{else}}{{.ID}}{{end}}</a>{{with .Activity}} <span class="hb-activity">{{.}}</span>{{end}}</li>{{end}}</ul></section>{{end}}{{end}}

{{define "description"}}{{with .}}<p class="hb-description">{{.}}</p>{{end}}{{end}}

{{define "molecule-card"}}<h3>{{.Name}}</h3><span class="hb-id">{{.ID}}</span>{{with .Formula}} <span class="hb-formula">{{.}}</span>{{end}}{{with num .MolecularWeight}} <span class="hb-mw">{{.}} g/mol</span>{{end}}{{end}}

{{define "molecule-detail"}}<figure class="hb-structure">{{if .PubChemCID}}<img src="{{structure .ID}}" alt="Structure of {{.Name}}" loading="lazy">{{else}}<figcaption>No structure image available</figcaption>{{end}}</figure>
{{template "description" .Description}}
<dl class="hb-fields">
{{template "row" (row "ID" .ID)}}{{template "row" (row "Original ID" .OriginalID)}}{{template "row" (row "Formula" .Formula)}}{{template "row" (row "Molecular weight" (num .MolecularWeight))}}{{if .SMILES}}<dt>SMILES</dt><dd><code class="hb-smiles">{{.SMILES}}</code></dd>{{end}}{{template "row" (row "InChIKey" .InChIKey)}}{{template "row" (row "CAS" .CASNumber)}}{{template "row" (row "PubChem CID" .PubChemCID)}}{{template "row" (row "ChEMBL" .ChEMBLID)}}{{template "row" (row "DrugBank" .DrugBankID)}}{{template "row" (row "LogP" (num .LogP))}}{{template "row" (row "Polar surface area" (num .PolarSurfaceArea))}}{{template "row" (row "H-bond donors" (int .HBondDonors))}}{{template "row" (row "H-bond acceptors" (int .HBondAcceptors))}}{{template "row" (row "Rotatable bonds" (int .RotatableBonds))}}
</dl>
{{template "props" .Properties}}{{template "refs" (refs "Targets" "target" .Targets)}}{{template "refs" (refs "Effects" "effect" .Effects)}}{{end}}

{{define "target-card"}}<h3>{{.Name}}</h3><span class="hb-id">{{.ID}}</span>{{with .GeneName}} <span class="hb-gene">{{.}}</span>{{end}}{{with .Type}} <span class="hb-type">{{.}}</span>{{end}}{{end}}

{{define "target-detail"}}{{template "description" .Description}}
<dl class="hb-fields">
{{template "row" (row "ID" .ID)}}{{template "row" (row "Type" .Type)}}{{template "row" (row "Gene" .GeneName)}}{{template "row" (row "Organism" .Organism)}}{{if .ExternalID}}<dt>UniProt</dt><dd><a href="https://www.uniprot.org/uniprotkb/{{.ExternalID}}" target="_blank" rel="noopener">{{.ExternalID}}</a></dd>{{end}}
</dl>
{{if .Sequence}}<section class="hb-sequence"><h3>Sequence <small>({{len .Sequence}} residues)</small></h3><pre>{{range chunk .Sequence 60}}{{.}}
{{end}}</pre></section>{{end}}
{{template "props" .Properties}}{{template "refs" (refs "Molecules" "molecule" .Molecules)}}{{template "refs" (refs "Effects" "effect" .Effects)}}{{end}}

{{define "organism-card"}}<h3><em>{{.Name}}</em></h3><span class="hb-id">{{.ID}}</span>{{with .CommonName}} <span class="hb-common">{{.}}</span>{{end}}{{end}}

{{define "organism-detail"}}{{template "description" .Description}}
<dl class="hb-fields">
{{template "row" (row "ID" .ID)}}{{template "row" (row "Common name" .CommonName)}}{{if .ExternalID}}<dt>NCBI Taxonomy</dt><dd><a href="https://www.ncbi.nlm.nih.gov/Taxonomy/Browser/wwwtax.cgi?id={{.ExternalID}}" target="_blank" rel="noopener">{{.ExternalID}}</a></dd>{{end}}
</dl>
{{if .Taxonomy}}<section class="hb-taxonomy"><h3>Taxonomy</h3><ol>{{range .Taxonomy}}<li>{{.}}</li>{{end}}</ol></section>{{end}}
{{template "props" .Properties}}{{template "refs" (refs "Molecules" "molecule" .Molecules)}}{{template "refs" (refs "Targets" "target" .Targets)}}{{end}}

{{define "badge"}}{{if .}}<span class="hb-badge hb-cat-{{.}}" style="background-color: {{color .}}">{{.}}</span>{{end}}{{end}}

{{define "effect-card"}}<h3>{{.Name}}</h3><span class="hb-id">{{.ID}}</span> {{template "badge" .Category}}{{end}}

{{define "effect-detail"}}{{template "badge" .Category}}
{{template "description" .Description}}
<dl class="hb-fields">
{{template "row" (row "ID" .ID)}}{{template "row" (row "Onset" .OnsetTime)}}{{template "row" (row "Duration" .Duration)}}{{template "row" (row "Source" .Source)}}{{template "row" (row "External ID" .ExternalID)}}
</dl>
{{template "props" .Properties}}{{template "refs" (refs "Molecules" "molecule" .Molecules)}}{{template "refs" (refs "Targets" "target" .Targets)}}{{end}}
`))

func render(name string, data interface{}) template.HTML {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		return template.HTML(`<p class="hb-error">` + template.HTMLEscapeString(err.Error()) + `</p>`)
	}
	return template.HTML(buf.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Formatting helpers
// ─────────────────────────────────────────────────────────────────────────────

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func sortedProps(m common.Metadata) []prop {
	out := make([]prop, 0, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		out = append(out, prop{Key: k, Value: stringify(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func chunk(s string, n int) []string {
	s = strings.Join(strings.Fields(s), "")
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

// stringify renders a decoded JSON value for display.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, stringify(p))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	}
	return fmt.Sprint(v)
}
