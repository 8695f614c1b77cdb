// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.
//
// The go-equa library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-equa library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-equa library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysisCacheHitCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "equa",
		Subsystem: "vm_analysis_cache",
		Name:      "hits_total",
		Help:      "Code analyses served from the shared cache.",
	})
	analysisCacheMissCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "equa",
		Subsystem: "vm_analysis_cache",
		Name:      "misses_total",
		Help:      "Shared cache lookups that required a fresh analysis.",
	})
	analysisCacheBypassCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "equa",
		Subsystem: "vm_analysis_cache",
		Name:      "bypass_total",
		Help:      "Analyses computed without consulting the cache (empty code or unknown hash).",
	})
	analysisCacheEvictCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "equa",
		Subsystem: "vm_analysis_cache",
		Name:      "evictions_total",
		Help:      "Entries dropped to keep the cache within its byte budget.",
	})
	analysisCacheOversizeCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "equa",
		Subsystem: "vm_analysis_cache",
		Name:      "oversized_total",
		Help:      "Analyses larger than the whole cache budget, never stored.",
	})
	analysisCacheSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "equa",
		Subsystem: "vm_analysis_cache",
		Name:      "size_bytes",
		Help:      "Estimated footprint of the entries held by the shared cache.",
	})
	analysisCacheEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "equa",
		Subsystem: "vm_analysis_cache",
		Name:      "entries",
		Help:      "Number of entries held by the shared cache.",
	})
)
