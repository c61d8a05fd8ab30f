package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/finding"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/veracode"
)

// API is the subset of the platform client the resolver needs.
type API interface {
	GetCollection(ctx context.Context, guid string) (*veracode.Collection, error)
	Collections(name string) *veracode.Pager[veracode.Collection]
	CollectionAssets(guid string) *veracode.Pager[veracode.Asset]
}

// Resolver maps identifiers to descriptors. It keeps no state between calls.
type Resolver struct {
	api    API
	logger *slog.Logger
	tracer trace.Tracer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) ResolverOption {
	return func(r *Resolver) { r.tracer = t }
}

// NewResolver creates a Resolver over api.
func NewResolver(api API, opts ...ResolverOption) *Resolver {
	r := &Resolver{api: api}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(defaults.ToolName + "/collection")
	}
	return r
}

// Resolve looks up the collection and drains its member list.
// scanTypes must be non-empty; it is validated here so that a bad filter
// fails before any network call, but it does not affect membership.
func (r *Resolver) Resolve(ctx context.Context, id Identifier, scanTypes finding.ScanTypeSet) (*Descriptor, error) {
	if len(scanTypes) == 0 {
		return nil, ErrNoScanTypes
	}
	for _, st := range scanTypes {
		if !st.IsValid() {
			return nil, fmt.Errorf("collection: %w: %q", finding.ErrUnknownScanType, st)
		}
	}

	ctx, span := r.tracer.Start(ctx, "collection.resolve", trace.WithAttributes(
		attribute.String("collection.identifier", id.String()),
		attribute.Bool("collection.by_guid", id.IsGUID()),
	))
	defer span.End()

	var (
		coll *veracode.Collection
		err  error
	)
	if id.IsGUID() {
		coll, err = r.byGUID(ctx, id)
	} else {
		coll, err = r.byName(ctx, id)
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	members, err := r.members(ctx, coll.GUID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("collection.guid", coll.GUID), attribute.Int("collection.members", len(members)))
	r.logger.Info("resolved collection",
		slog.String("guid", coll.GUID),
		slog.String("name", coll.Name),
		slog.Int("members", len(members)))

	return &Descriptor{
		ID:                 coll.GUID,
		Name:               coll.Name,
		Description:        coll.Description,
		ComplianceStatus:   coll.ComplianceStatus,
		ComplianceOverview: coll.ComplianceOverview,
		Members:            members,
	}, nil
}

func (r *Resolver) byGUID(ctx context.Context, id Identifier) (*veracode.Collection, error) {
	coll, err := r.api.GetCollection(ctx, id.GUID.String())
	if errors.Is(err, veracode.ErrNotFound) {
		return nil, &NotFoundError{Identifier: id}
	}
	if err != nil {
		return nil, fmt.Errorf("collection: get %s: %w", id, err)
	}
	return coll, nil
}

// byName drains the listing and keeps exact, case-sensitive matches.
// The server-side filter is only a hint: it matches substrings.
func (r *Resolver) byName(ctx context.Context, id Identifier) (*veracode.Collection, error) {
	var matches []veracode.Collection
	for c, err := range r.api.Collections(id.Name).All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("collection: list: %w", err)
		}
		if c.Name == id.Name {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Identifier: id}
	case 1:
		return &matches[0], nil
	default:
		guids := make([]string, len(matches))
		for i, m := range matches {
			guids[i] = m.GUID
		}
		return nil, &AmbiguousNameError{Name: id.Name, GUIDs: guids}
	}
}

func (r *Resolver) members(ctx context.Context, guid string) ([]AssetRef, error) {
	members := []AssetRef{}
	seen := make(map[string]bool)
	for a, err := range r.api.CollectionAssets(guid).All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("collection: members of %s: %w", guid, err)
		}
		if seen[a.GUID] {
			r.logger.Debug("skipping repeated member", slog.String("asset", a.GUID))
			continue
		}
		seen[a.GUID] = true
		ref := AssetRef{
			ID:                     a.GUID,
			Name:                   a.Name,
			PolicyStatus:           a.ComplianceStatus(),
			PassedRules:            a.Attributes.PolicyPassedRules,
			PassedScanRequirements: a.Attributes.PolicyPassedScanRequirements,
			InGracePeriod:          a.Attributes.PolicyInGracePeriod,
		}
		if date := a.Attributes.LastCompletedScanDate; date != "" {
			if ts, err := veracode.ParseTimestamp(date); err == nil {
				ref.LastScan = ts
			} else {
				r.logger.Warn("ignoring unparseable scan date",
					slog.String("asset", a.GUID),
					slog.String("value", date))
			}
		}
		members = append(members, ref)
	}
	return members, nil
}
