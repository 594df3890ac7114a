package pages

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// enrichedFields flattens an enrichment result into one lookup table:
// properties first, then identifiers, then attributes, first key wins.
type enrichedFields common.Metadata

func fieldsOf(res enrichment.Result) enrichedFields {
	f := enrichedFields{}
	add := func(k string, v interface{}) {
		k = strings.ToLower(strings.TrimSpace(k))
		if _, ok := f[k]; !ok && v != nil && k != "" {
			f[k] = v
		}
	}
	for k, v := range res.Data.Properties {
		add(k, v)
	}
	for k, v := range res.Data.Identifiers {
		add(k, v)
	}
	for _, a := range res.Data.Attributes {
		add(a.Name, a.Value)
	}
	return f
}

func (f enrichedFields) str(keys ...string) string {
	for _, k := range keys {
		if v, ok := f[k]; ok {
			if s := strings.TrimSpace(stringify(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func (f enrichedFields) float(keys ...string) *float64 {
	for _, k := range keys {
		v, ok := f[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return &t
		case int:
			x := float64(t)
			return &x
		case json.Number:
			if x, err := t.Float64(); err == nil {
				return &x
			}
		case string:
			if x, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return &x
			}
		}
	}
	return nil
}

func (f enrichedFields) int(keys ...string) *int {
	if x := f.float(keys...); x != nil {
		n := int(*x)
		return &n
	}
	return nil
}

func (f enrichedFields) list(keys ...string) []string {
	for _, k := range keys {
		switch t := f[k].(type) {
		case []string:
			return t
		case []interface{}:
			out := make([]string, 0, len(t))
			for _, v := range t {
				out = append(out, stringify(v))
			}
			return out
		case string:
			if t != "" {
				return []string{t}
			}
		}
	}
	return nil
}

// mergeProperties returns a copy of dst with the result's properties and
// attributes added where dst has no value.
func mergeProperties(dst common.Metadata, res enrichment.Result) common.Metadata {
	out := make(common.Metadata, len(dst)+len(res.Data.Properties))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range res.Data.Properties {
		if cur, ok := out[k]; !ok || cur == nil {
			out[k] = v
		}
	}
	for _, a := range res.Data.Attributes {
		if cur, ok := out[a.Name]; !ok || cur == nil {
			out[a.Name] = a.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillFloat(dst **float64, v *float64) {
	if *dst == nil {
		*dst = v
	}
}

func fillInt(dst **int, v *int) {
	if *dst == nil {
		*dst = v
	}
}
