package browser

import (
	"bytes"
	"errors"
	"html/template"
	"strings"

	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/client"
	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Templates
// ─────────────────────────────────────────────────────────────────────────────

var fragments = template.Must(template.New("browser").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).Parse(`
{{define "messages"}}{{range .}}<div class="hb-msg hb-{{.Severity}}" data-message="{{.ID}}">{{.Text}}{{with .Retry}} <button class="hb-retry" data-method="{{lower .Method}}" data-path="{{.Path}}">{{.Label}}</button>{{end}}</div>{{end}}{{end}}

{{define "banner"}}{{template "messages" .Messages}}{{if .Actions}}<nav class="hb-actions">{{range .Actions}}<button data-method="post" data-path="{{$.Base}}/actions/{{.Name}}">{{.Label}}</button>{{end}}</nav>{{end}}{{end}}

{{define "list"}}<div class="hb-list" data-kind="{{.Kind}}" data-background="{{.Base}}/close">
{{template "messages" .Messages}}
{{if not .Loaded}}<p class="hb-loading">Loading {{.Plural}}…</p>
{{else if not .Cards}}<p class="hb-empty">{{if .Filter}}No {{.Plural}} match "{{.Filter}}".{{else if .Query}}No {{.Plural}} found for "{{.Query}}".{{else}}No {{.Plural}} yet.{{end}}</p>
{{else}}<ul class="hb-cards">{{range .Cards}}<li class="hb-card{{if .Selected}} selected{{end}}" data-id="{{.ID}}" data-method="post" data-path="{{$.Base}}/select/{{.ID}}">{{.HTML}}</li>{{end}}</ul>{{end}}
</div>{{end}}

{{define "detail"}}{{template "messages" .Messages}}
{{if .Has}}<article class="hb-detail" data-id="{{.ID}}">
<header><h2>{{.Name}}</h2><button class="hb-close" data-method="post" data-path="{{.Base}}/close">Close</button></header>
{{.Body}}
<section class="hb-enrich">
<button class="hb-enrich-button" data-method="post" data-path="{{.Base}}/enrich/{{.ID}}"{{if .Enrich.InFlight}} disabled{{end}}>{{if .Enrich.InFlight}}Enriching…{{else}}Enrich{{end}}</button>
{{template "messages" .EnrichMessages}}
{{if .Enrich.Sources}}<ul class="hb-sources">{{range .Enrich.Sources}}<li><a href="{{.URL}}" target="_blank" rel="noopener">{{.Name}}</a></li>{{end}}</ul>{{end}}
</section>
<footer>{{if .ConfirmDelete}}<span class="hb-confirm">Delete {{.Name}}?</span> <button data-method="post" data-path="{{.Base}}/delete/{{.ID}}/confirm">Confirm</button> <button data-method="post" data-path="{{.Base}}/delete/{{.ID}}/cancel">Cancel</button>{{else}}<button data-method="post" data-path="{{.Base}}/edit/{{.ID}}">Edit</button> <button data-method="post" data-path="{{.Base}}/delete/{{.ID}}">Delete</button>{{end}}</footer>
</article>
{{else if .Loading}}<p class="hb-loading">Loading…</p>
{{else if not .Messages}}<p class="hb-empty">Select a {{.Kind}} to view its details.</p>{{end}}{{end}}

{{define "form"}}<div class="hb-search"><input type="search" name="q" value="{{.Query}}" placeholder="Search {{.Plural}}" data-method="get" data-path="{{.Base}}/items"></div>
<form class="hb-form" data-method="post" data-path="{{.Base}}/submit">
{{template "messages" .Messages}}
{{if .Editing}}<input type="hidden" name="id" value="{{.Editing}}">{{end}}
{{range .Fields}}<label>{{.Label}}{{if .Identifying}} *{{end}}
{{if eq .Kind "textarea"}}<textarea name="{{.Name}}" placeholder="{{.Placeholder}}">{{.Value}}</textarea>
{{else if eq .Kind "select"}}<select name="{{.Name}}"><option value=""></option>{{$v := .Value}}{{range .Options}}<option value="{{.}}"{{if eq . $v}} selected{{end}}>{{.}}</option>{{end}}</select>
{{else}}<input type="{{.Kind}}" name="{{.Name}}" value="{{.Value}}" placeholder="{{.Placeholder}}">{{end}}</label>
{{end}}<button type="submit">{{if .Editing}}Update{{else}}Add{{end}} {{.Label}}</button>{{if .Editing}} <button type="button" data-method="post" data-path="{{.Base}}/edit/cancel">Cancel</button>{{end}}
</form>{{end}}
`))

type cardView struct {
	ID       string
	HTML     template.HTML
	Selected bool
}

type formField struct {
	Field
	Value string
}

// ─────────────────────────────────────────────────────────────────────────────
// Region renderers. All run with p.mu held.
// ─────────────────────────────────────────────────────────────────────────────

func (p *Page[T]) renderAllLocked() {
	p.renderBannerLocked()
	p.renderFormLocked()
	p.renderListLocked()
	p.renderDetailLocked()
}

func (p *Page[T]) setRegion(id, name string, data interface{}) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		p.s.logger.Error("render failed", logging.String("region", id), logging.Err(err))
		return
	}
	if err := p.doc.Set(id, template.HTML(buf.String())); err != nil {
		p.s.logger.Debug("region not mounted", logging.String("region", id))
	}
}

func (p *Page[T]) renderBannerLocked() {
	p.setRegion(p.regions.Banner, "banner", struct {
		Base     string
		Messages []Message
		Actions  []Action
	}{p.s.basePath, p.messages.active(p.s.now(), ScopeBanner, ""), p.cfg.Actions})
}

func (p *Page[T]) renderListLocked() {
	visible := p.visibleLocked()
	cards := make([]cardView, 0, len(visible))
	for _, it := range visible {
		var body template.HTML
		if p.cfg.RenderCard != nil {
			body = p.cfg.RenderCard(it)
		} else {
			body = template.HTML(template.HTMLEscapeString(displayName(it)))
		}
		cards = append(cards, cardView{ID: it.GetID(), HTML: body, Selected: it.GetID() == p.currentID})
	}
	p.setRegion(p.regions.List, "list", struct {
		Kind     common.Kind
		Plural   string
		Base     string
		Loaded   bool
		Filter   string
		Query    string
		Cards    []cardView
		Messages []Message
	}{p.cfg.Kind, p.cfg.Kind.Plural(), p.s.basePath, p.loaded, p.filter, p.query, cards,
		p.messages.active(p.s.now(), ScopeList, "")})
}

func (p *Page[T]) renderDetailLocked() {
	data := struct {
		Kind           common.Kind
		Base           string
		Has            bool
		Loading        bool
		ID             string
		Name           string
		Body           template.HTML
		Enrich         EnrichStatus
		EnrichMessages []Message
		ConfirmDelete  bool
		Messages       []Message
	}{
		Kind:     p.cfg.Kind,
		Base:     p.s.basePath,
		Loading:  p.detailLoading,
		Messages: p.messages.active(p.s.now(), ScopeDetail, ""),
	}
	if p.detail != nil {
		item := *p.detail
		data.Has = true
		data.ID = item.GetID()
		data.Name = displayName(item)
		if p.cfg.RenderDetail != nil {
			data.Body = p.cfg.RenderDetail(item)
		}
		if st := p.enrich[data.ID]; st != nil {
			data.Enrich = *st
		}
		data.EnrichMessages = p.messages.active(p.s.now(), ScopeEnrich, data.ID)
		data.ConfirmDelete = p.pendingDelete == data.ID
	}
	p.setRegion(p.regions.Detail, "detail", data)
}

func (p *Page[T]) renderFormLocked() {
	fields := make([]formField, 0, len(p.cfg.Form))
	for _, f := range p.cfg.Form {
		if f.Kind == "" {
			f.Kind = FieldText
		}
		fields = append(fields, formField{Field: f, Value: p.formValues[f.Name]})
	}
	p.setRegion(p.regions.Form, "form", struct {
		Base     string
		Plural   string
		Label    string
		Query    string
		Editing  string
		Fields   []formField
		Messages []Message
	}{p.s.basePath, p.cfg.Kind.Plural(), p.cfg.Kind.Label(), p.query, p.editing, fields,
		p.messages.active(p.s.now(), ScopeForm, "")})
}

// ErrorText is the user-facing text of err: the API message when present.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return apiErr.Error()
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
