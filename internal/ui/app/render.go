package app

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/types/common"
)

var fragments = template.Must(template.New("app").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).Parse(`
{{define "banner"}}{{with .}}<div class="hb-msg hb-error" role="alert">{{.}}</div>{{end}}{{end}}

{{define "stats"}}<dl class="hb-stats">{{range .}}<div class="hb-stat"><dt>{{.Label}}</dt><dd>{{if .Known}}{{.Count}}{{else}}–{{end}}</dd></div>{{end}}</dl>{{end}}

{{define "search"}}<input type="search" name="q" value="{{.}}" placeholder="Search the graph" data-method="get" data-path="/ui/graph/search">{{end}}

{{define "legend"}}<div class="hb-legend">{{if .NodeTypes}}<ul class="hb-legend-nodes">{{range .NodeTypes}}<li><span class="hb-swatch" style="background-color: {{.Color}}"></span>{{.Label}} ({{.Count}})</li>{{end}}</ul>{{end}}{{if .Activities}}<ul class="hb-legend-links">{{range .Activities}}<li><span class="hb-line" style="border-color: {{.Color}}"></span>{{.Label}}</li>{{end}}</ul>{{end}}</div>{{end}}

{{define "detail"}}{{if .Error}}<div class="hb-msg hb-error">{{.Error}}</div>
{{else if .Detail}}{{with .Detail}}<article class="hb-node" data-id="{{.ID}}">
<header><h2>{{.Name}}</h2><span class="hb-type">{{.Type}}</span><button class="hb-close" data-method="post" data-path="/ui/graph/clear">Close</button></header>
{{if $.Props}}<dl class="hb-props">{{range $.Props}}<dt>{{.Name}}</dt><dd>{{.Value}}</dd>{{end}}</dl>{{end}}
{{if .RelatedNodes}}<h3>Related</h3><ul class="hb-related">{{range .RelatedNodes}}<li><a href="/{{lower .Type}}s?id={{.ID}}">{{.Name}}</a> <span class="hb-rel">{{.Relationship}}{{with .Activity}} ({{.}}){{end}}</span></li>{{end}}</ul>{{else}}<p class="hb-empty">No related nodes.</p>{{end}}
</article>{{end}}
{{else}}<p class="hb-empty">Click a node to see its details.</p>{{end}}{{end}}
`))

type statView struct {
	Label string
	Count int
	Known bool
}

type propView struct {
	Name  string
	Value string
}

func (a *App) setRegion(id, name string, data interface{}) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		a.s.logger.Error("rendering landing page fragment failed", logging.String("region", id), logging.Err(err))
		return
	}
	if err := a.doc.Set(id, template.HTML(buf.String())); err != nil {
		a.s.logger.Debug("region unavailable", logging.String("region", id), logging.Err(err))
	}
}

func (a *App) renderBannerLocked() { a.setRegion(RegionBanner, "banner", a.banner) }

func (a *App) renderSearchLocked() { a.setRegion(RegionSearch, "search", a.query) }

func (a *App) renderStatsLocked() {
	rows := make([]statView, 0, len(common.AllKinds))
	for _, k := range common.AllKinds {
		rows = append(rows, statView{Label: k.Label() + "s", Count: a.stats.Count(k), Known: a.statsLoaded})
	}
	a.setRegion(RegionStats, "stats", rows)
}

func (a *App) renderLegendLocked() {
	a.setRegion(RegionLegend, "legend", a.view.Legend())
}

func (a *App) renderDetailLocked() {
	var props []propView
	if a.detail != nil {
		keys := make([]string, 0, len(a.detail.Properties))
		for k := range a.detail.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := a.detail.Properties[k]; v != nil && v != "" {
				props = append(props, propView{Name: k, Value: fmt.Sprint(v)})
			}
		}
	}
	a.setRegion(RegionDetail, "detail", struct {
		Detail interface{}
		Props  []propView
		Error  string
	}{Detail: a.detail, Props: props, Error: a.detailErr})
}
