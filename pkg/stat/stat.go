// Copyright 2026 ppcidiom project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/VividCortex/gohistogram"
	"github.com/prometheus/client_golang/prometheus"
)

// This file provides named metric values (Val type) for instrumenting the tools,
// and a registry for such metrics with a global default registry.
//
// Simple uses of metrics:
//
//	statFoo := stat.New("metric name", "metric description")
//	statFoo.Add(1)
//
//	stat.New("metric name", "metric description", func() int { return len(queue) })
//
// Tools print Collect(Console) when they finish and export Prometheus metrics over http.

type UI struct {
	Name  string
	Desc  string
	Level Level
	Value string
	V     int
}

func New(name, desc string, opts ...any) *Val {
	return global.New(name, desc, opts...)
}

func Collect(level Level) []UI {
	return global.Collect(level)
}

var global = newSet(prometheus.DefaultRegisterer)

type set struct {
	mu    sync.Mutex
	vals  map[string]*Val
	order atomic.Uint64
	reg   prometheus.Registerer
}

const histogramBuckets = 255

func newSet(reg prometheus.Registerer) *set {
	return &set{
		vals: make(map[string]*Val),
		reg:  reg,
	}
}

// Level controls if the metric is printed in the tool's console summary.
type Level int

const (
	All Level = iota
	Console
)

// Prometheus exports the metric to Prometheus under the given name.
type Prometheus string

// Distribution says to collect the distribution of individual samples
// rather than their sum. Val returns the mean.
type Distribution struct{}

// Additionally a custom 'func() int' can be passed to read the metric value from the function,
// and 'func(int) string' can be passed for custom formatting of the metric value.

func (s *set) New(name, desc string, opts ...any) *Val {
	v := &Val{
		name:  name,
		desc:  desc,
		order: s.order.Add(1),
		fmt:   strconv.Itoa,
	}
	for _, o := range opts {
		switch opt := o.(type) {
		case Level:
			v.level = opt
		case Distribution:
			v.hist = true
		case func() int:
			v.ext = opt
		case func(int) string:
			v.fmt = opt
		case Prometheus:
			// Registration fails for duplicate names, e.g. when a tool is
			// re-initialized in tests; the first registration stays in effect.
			s.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: string(opt),
				Help: desc,
			},
				func() float64 { return float64(v.Val()) },
			))
		default:
			panic(fmt.Sprintf("unknown stats option %#v", o))
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[name] = v
	return v
}

func (s *set) Collect(level Level) []UI {
	s.mu.Lock()
	defer s.mu.Unlock()
	var vals []*Val
	for _, v := range s.vals {
		if v.level >= level {
			vals = append(vals, v)
		}
	}
	sort.Slice(vals, func(i, j int) bool {
		return vals[i].order < vals[j].order
	})
	var res []UI
	for _, v := range vals {
		val := v.Val()
		text := v.fmt(val)
		if v.hist {
			text = v.formatHist()
		}
		res = append(res, UI{
			Name:  v.name,
			Desc:  v.desc,
			Level: v.level,
			Value: text,
			V:     val,
		})
	}
	return res
}

type Val struct {
	name    string
	desc    string
	level   Level
	order   uint64
	val     atomic.Uint64
	ext     func() int
	fmt     func(int) string
	hist    bool
	histMu  sync.Mutex
	histVal *gohistogram.NumericHistogram
}

func (v *Val) Add(val int) {
	if v.ext != nil {
		panic(fmt.Sprintf("stat %v is in external mode", v.name))
	}
	if v.hist {
		v.histMu.Lock()
		if v.histVal == nil {
			v.histVal = gohistogram.NewHistogram(histogramBuckets)
		}
		v.histVal.Add(float64(val))
		v.histMu.Unlock()
		return
	}
	v.val.Add(uint64(val))
}

func (v *Val) Val() int {
	if v.ext != nil {
		return v.ext()
	}
	if v.hist {
		v.histMu.Lock()
		defer v.histMu.Unlock()
		if v.histVal == nil {
			return 0
		}
		return int(v.histVal.Mean())
	}
	return int(v.val.Load())
}

func (v *Val) formatHist() string {
	v.histMu.Lock()
	defer v.histMu.Unlock()
	if v.histVal == nil {
		return "-"
	}
	return fmt.Sprintf("mean %.1f, p90 %.0f (%v samples)",
		v.histVal.Mean(), v.histVal.Quantile(0.9), v.histVal.Count())
}
