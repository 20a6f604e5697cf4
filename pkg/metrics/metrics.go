// Prometheus text-format metrics for the plotter host
//
// Counters, gauges and histograms keyed by label sets, collected in a
// Registry and rendered in the Prometheus exposition format.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	}
	return "untyped"
}

// Labels is one label set of a metric.
type Labels map[string]string

func (l Labels) sortedKeys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key identifies the label set independent of map order.
func (l Labels) Key() string {
	var sb strings.Builder
	for i, k := range l.sortedKeys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

// String renders the set as {k="v",...}, or "" when empty.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range l.sortedKeys() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(labelEscaper.Replace(l[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

func (l Labels) clone() Labels {
	out := make(Labels, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	return out
}

// With returns a copy of l with key set to value.
func (l Labels) With(key, value string) Labels {
	out := l.clone()
	out[key] = value
	return out
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Metric is the interface for all metric types
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Write(sb *strings.Builder)
}

// family holds the per-label-set values of one metric.
type family[V any] struct {
	name, help string
	mu         sync.Mutex
	series     map[string]*V
	labels     map[string]Labels
	newValue   func() *V
}

func (f *family[V]) init(name, help string, newValue func() *V) {
	f.name, f.help = name, help
	f.series = make(map[string]*V)
	f.labels = make(map[string]Labels)
	f.newValue = newValue
}

func (f *family[V]) Name() string { return f.name }
func (f *family[V]) Help() string { return f.help }

// update runs fn on the value for labels under the family lock.
func (f *family[V]) update(labels Labels, fn func(*V)) {
	key := labels.Key()
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.series[key]
	if !ok {
		v = f.newValue()
		f.series[key] = v
		f.labels[key] = labels.clone()
	}
	fn(v)
}

// read runs fn on the value for labels, or returns false if none exists.
func (f *family[V]) read(labels Labels, fn func(*V)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.series[labels.Key()]
	if ok {
		fn(v)
	}
	return ok
}

// each visits every series in label-key order.
func (f *family[V]) each(fn func(Labels, *V)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(f.labels[k], f.series[k])
	}
}

func (f *family[V]) header(sb *strings.Builder, t MetricType) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, t)
}

func sample(sb *strings.Builder, name string, labels Labels, value string) {
	sb.WriteString(name)
	sb.WriteString(labels.String())
	sb.WriteByte(' ')
	sb.WriteString(value)
	sb.WriteByte('\n')
}

// Counter is a monotonically increasing metric
type Counter struct {
	family[uint64]
}

func NewCounter(name, help string) *Counter {
	c := &Counter{}
	c.init(name, help, func() *uint64 { return new(uint64) })
	return c
}

func (c *Counter) Type() MetricType { return TypeCounter }

func (c *Counter) Inc(labels Labels) { c.Add(labels, 1) }

func (c *Counter) Add(labels Labels, delta uint64) {
	c.update(labels, func(v *uint64) { *v += delta })
}

// Get returns the value for labels, zero if never incremented.
func (c *Counter) Get(labels Labels) (out uint64) {
	c.read(labels, func(v *uint64) { out = *v })
	return out
}

func (c *Counter) Write(sb *strings.Builder) {
	c.header(sb, TypeCounter)
	c.each(func(l Labels, v *uint64) {
		sample(sb, c.name, l, strconv.FormatUint(*v, 10))
	})
}

// Gauge is a metric that can go up and down
type Gauge struct {
	family[float64]
}

func NewGauge(name, help string) *Gauge {
	g := &Gauge{}
	g.init(name, help, func() *float64 { return new(float64) })
	return g
}

func (g *Gauge) Type() MetricType { return TypeGauge }

func (g *Gauge) Set(labels Labels, value float64) {
	g.update(labels, func(v *float64) { *v = value })
}

func (g *Gauge) Add(labels Labels, delta float64) {
	g.update(labels, func(v *float64) { *v += delta })
}

func (g *Gauge) Inc(labels Labels) { g.Add(labels, 1) }
func (g *Gauge) Dec(labels Labels) { g.Add(labels, -1) }

func (g *Gauge) Get(labels Labels) (out float64) {
	g.read(labels, func(v *float64) { out = *v })
	return out
}

func (g *Gauge) Write(sb *strings.Builder) {
	g.header(sb, TypeGauge)
	g.each(func(l Labels, v *float64) {
		sample(sb, g.name, l, formatFloat(*v))
	})
}

type histogramValue struct {
	count   uint64
	sum     float64
	buckets []uint64 // non-cumulative
}

// Histogram tracks the distribution of observations
type Histogram struct {
	family[histogramValue]
	bounds []float64
}

// NewHistogram creates a histogram with the given upper bounds; +Inf is
// implicit.
func NewHistogram(name, help string, bounds []float64) *Histogram {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	h := &Histogram{bounds: sorted}
	h.init(name, help, func() *histogramValue {
		return &histogramValue{buckets: make([]uint64, len(sorted))}
	})
	return h
}

// DefaultBuckets suits latencies in seconds.
func DefaultBuckets() []float64 {
	return []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
}

// ExponentialBuckets returns count bounds starting at start, each factor
// times the previous.
func ExponentialBuckets(start, factor float64, count int) []float64 {
	out := make([]float64, count)
	for i := range out {
		out[i] = start
		start *= factor
	}
	return out
}

func (h *Histogram) Type() MetricType { return TypeHistogram }

func (h *Histogram) Observe(labels Labels, value float64) {
	i := sort.SearchFloat64s(h.bounds, value)
	h.update(labels, func(v *histogramValue) {
		v.count++
		v.sum += value
		if i < len(v.buckets) {
			v.buckets[i]++
		}
	})
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(labels Labels, d time.Duration) {
	h.Observe(labels, d.Seconds())
}

// HistogramSnapshot is a point-in-time copy with cumulative buckets.
type HistogramSnapshot struct {
	Count   uint64
	Sum     float64
	Buckets map[float64]uint64
}

func (h *Histogram) GetSnapshot(labels Labels) HistogramSnapshot {
	snap := HistogramSnapshot{Buckets: make(map[float64]uint64, len(h.bounds))}
	h.read(labels, func(v *histogramValue) {
		snap.Count, snap.Sum = v.count, v.sum
		var cum uint64
		for i, b := range h.bounds {
			cum += v.buckets[i]
			snap.Buckets[b] = cum
		}
	})
	return snap
}

func (h *Histogram) Write(sb *strings.Builder) {
	h.header(sb, TypeHistogram)
	h.each(func(l Labels, v *histogramValue) {
		var cum uint64
		for i, b := range h.bounds {
			cum += v.buckets[i]
			sample(sb, h.name+"_bucket", l.With("le", formatFloat(b)), strconv.FormatUint(cum, 10))
		}
		sample(sb, h.name+"_bucket", l.With("le", "+Inf"), strconv.FormatUint(v.count, 10))
		sample(sb, h.name+"_sum", l, formatFloat(v.sum))
		sample(sb, h.name+"_count", l, strconv.FormatUint(v.count, 10))
	})
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Registry holds metrics in registration order.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds a metric; names must be unique.
func (r *Registry) Register(m Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.metrics[m.Name()]; ok {
		return fmt.Errorf("metric %q already registered", m.Name())
	}
	r.metrics[m.Name()] = m
	r.order = append(r.order, m.Name())
	return nil
}

// MustRegister adds metrics and panics on a duplicate name.
func (r *Registry) MustRegister(ms ...Metric) {
	for _, m := range ms {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather renders every metric in Prometheus text format.
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sb strings.Builder
	for _, name := range r.order {
		r.metrics[name].Write(&sb)
	}
	return sb.String()
}
