package providers

import (
	"context"
	"time"

	"github.com/turtacn/HyperBlend/internal/config"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
)

// ErrNoData is returned when no provider knows the subject.
var ErrNoData = errors.New(errors.ErrCodeEnrichmentNoData, "no enrichment data found")

// CallObserver records provider latency and outcome.
type CallObserver interface {
	RecordProviderCall(provider string, d time.Duration, err error)
}

// Registry runs the providers that support a kind, in registration order,
// and merges their data with the first provider winning each key.
type Registry struct {
	providers []Provider
	observer  CallObserver
	logger    logging.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithObserver records every provider call.
func WithObserver(o CallObserver) RegistryOption {
	return func(r *Registry) { r.observer = o }
}

func NewRegistry(log logging.Logger, providers []Provider, opts ...RegistryOption) *Registry {
	if log == nil {
		log = logging.NewNopLogger()
	}
	r := &Registry{providers: providers, logger: log.Named("providers")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry wires PubChem, ChEMBL, UniProt, GBIF and the effect
// catalog from cfg.
func NewDefaultRegistry(cfg config.EnrichmentConfig, log logging.Logger, opts ...RegistryOption) *Registry {
	base := Config{RequestsPerSecond: cfg.RequestsPerSecond, Burst: cfg.Burst, Timeout: cfg.Timeout}
	with := func(url string) Config {
		c := base
		c.BaseURL = url
		return c
	}
	return NewRegistry(log, []Provider{
		NewPubChem(with(cfg.PubChemURL)),
		NewChEMBL(with(cfg.ChEMBLURL)),
		NewUniProt(with(cfg.UniProtURL)),
		NewGBIF(with(cfg.TaxonomyURL)),
		NewEffectCatalog(),
	}, opts...)
}

// For returns the providers supporting kind.
func (r *Registry) For(kind common.Kind) []Provider {
	var out []Provider
	for _, p := range r.providers {
		if p.Supports(kind) {
			out = append(out, p)
		}
	}
	return out
}

// PubChem returns the registered PubChem provider, if any.
func (r *Registry) PubChem() *PubChem {
	for _, p := range r.providers {
		if pc, ok := p.(*PubChem); ok {
			return pc
		}
	}
	return nil
}

// Enrich queries every supporting provider. A failing provider is logged and
// skipped. When nothing is found the last provider error is returned, or
// ErrNoData if every provider answered without data.
func (r *Registry) Enrich(ctx context.Context, s Subject) (*enrichment.Result, error) {
	result := &enrichment.Result{}
	var lastErr error
	found := false

	for _, p := range r.For(s.Kind) {
		start := time.Now()
		data, err := p.Enrich(ctx, s)
		if r.observer != nil {
			r.observer.RecordProviderCall(p.Name(), time.Since(start), err)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeJobTimedOut, "enrichment cancelled")
			}
			r.logger.Warn("provider failed",
				logging.String("provider", p.Name()),
				logging.Entity(string(s.Kind)),
				logging.EntityID(s.ID),
				logging.Err(err))
			lastErr = err
			continue
		}
		if data == nil || data.IsEmpty() {
			r.logger.Debug("provider returned no data", logging.String("provider", p.Name()), logging.EntityID(s.ID))
			continue
		}
		found = true
		result.Data.Merge(*data)
		if sl, ok := p.(SourceLister); ok {
			for _, src := range sl.SourcesFor(s) {
				result.AddSource(src)
			}
		} else {
			result.AddSource(p.Source())
		}
	}

	if !found {
		if lastErr != nil {
			return nil, errors.Wrap(lastErr, errors.ErrCodeEnrichmentFailed, "enrichment failed")
		}
		return nil, ErrNoData
	}
	result.Success = true
	return result, nil
}
