// Package reconcile decides and executes add/update/no-op per managed
// host record against the DNS provider.
package reconcile

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/pd-ddns/internal/config"
	"github.com/yuriy-kovalchuk/pd-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/pd-ddns/internal/ipv6"
)

// Action names the outcome of one record reconciliation.
type Action string

const (
	ActionNoop   Action = "noop"
	ActionUpdate Action = "update"
	ActionAdd    Action = "add"
)

const (
	recordType = "AAAA"
	// pageSize bounds the provider query; the managed record volume is
	// far below one page.
	pageSize = 100
)

// Result is the per-record outcome reported to the caller. Success and
// error entries share this shape and coexist in one batch.
type Result struct {
	RR       string `json:"rr"`
	Target   string `json:"target,omitempty"`
	Action   Action `json:"action,omitempty"`
	RecordID string `json:"recordId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Reconciler converges a single AAAA record toward a desired value.
type Reconciler struct {
	provider dns.Provider
	domain   string
	log      logr.Logger
}

// NewReconciler returns a Reconciler writing records under domain.
func NewReconciler(provider dns.Provider, domain string, log logr.Logger) *Reconciler {
	return &Reconciler{provider: provider, domain: domain, log: log}
}

// findRecord returns the first record exactly matching rr and type AAAA,
// or nil when none exists. The match is literal: no case folding, no
// trailing-dot normalization.
func (r *Reconciler) findRecord(ctx context.Context, rr string) (*dns.Record, error) {
	records, err := r.provider.ListRecords(ctx, r.domain, rr, recordType, 1, pageSize)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].RR == rr && records[i].Type == recordType {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Upsert converges the AAAA record named rr to value with the given TTL.
// A record already carrying both is left untouched; repeated calls
// against unchanged remote state are free of provider mutations.
func (r *Reconciler) Upsert(ctx context.Context, rr, value string, ttl int) Result {
	existing, err := r.findRecord(ctx, rr)
	if err != nil {
		return Result{RR: rr, Target: value, Error: err.Error()}
	}

	if existing == nil {
		desired := dns.Record{RR: rr, Type: recordType, Value: value, TTL: &ttl}
		id, err := r.provider.CreateRecord(ctx, r.domain, desired)
		if err != nil {
			return Result{RR: rr, Target: value, Error: err.Error()}
		}
		r.log.Info("record added", "rr", rr, "value", value)
		return Result{RR: rr, Target: value, Action: ActionAdd, RecordID: id}
	}

	sameValue := existing.Value == value
	// A remote record without a TTL never equals the desired one.
	sameTTL := existing.TTL != nil && *existing.TTL == ttl
	if sameValue && sameTTL {
		r.log.V(1).Info("record already current", "rr", rr, "value", value)
		return Result{RR: rr, Target: value, Action: ActionNoop, RecordID: existing.ID}
	}

	desired := dns.Record{RR: rr, Type: recordType, Value: value, TTL: &ttl}
	id, err := r.provider.UpdateRecord(ctx, existing.ID, desired)
	if err != nil {
		return Result{RR: rr, Target: value, Error: err.Error()}
	}
	r.log.Info("record updated", "rr", rr, "value", value)
	return Result{RR: rr, Target: value, Action: ActionUpdate, RecordID: id}
}

// Orchestrator runs one reconciliation per configured host, isolating
// each host's failures from its siblings.
type Orchestrator struct {
	reconciler *Reconciler
	records    []config.HostRecord
	ttl        int
	log        logr.Logger
}

// NewOrchestrator returns an Orchestrator over the configured host
// records, applying the same TTL to every record.
func NewOrchestrator(reconciler *Reconciler, records []config.HostRecord, ttl int, log logr.Logger) *Orchestrator {
	return &Orchestrator{reconciler: reconciler, records: records, ttl: ttl, log: log}
}

// UpdateAll reconciles every configured host against pdPrefix, returning
// one result per host in configuration order. A host whose stored
// link-local string fails validation, or whose provider calls fail, gets
// an error result; the batch always runs to completion.
func (o *Orchestrator) UpdateAll(ctx context.Context, pdPrefix string) []Result {
	results := make([]Result, 0, len(o.records))
	for _, rec := range o.records {
		// Static config is editable without a redeploy; re-check the
		// stored address on every request.
		suffix, err := ipv6.Suffix(rec.LL)
		if err != nil {
			o.log.Error(err, "skipping host with bad link-local address", "rr", rec.RR)
			results = append(results, Result{RR: rec.RR, Error: err.Error()})
			continue
		}

		target := ipv6.Recombine(pdPrefix, suffix)
		results = append(results, o.reconciler.Upsert(ctx, rec.RR, target, o.ttl))
	}
	return results
}
