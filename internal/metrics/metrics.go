// Package metrics defines the custom Prometheus metrics of the notes API.
// All collectors register with the default registry on package init, which
// is what the /metrics handler serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notes"

// NoteUpsertsTotal counts upserts.
// Label:
//   - result: "created" or "updated"
var NoteUpsertsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upserts_total",
		Help:      "Total number of note upserts, by whether a row was created or updated.",
	},
	[]string{"result"},
)

// NotesDeletedTotal counts notes actually removed.
var NotesDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deleted_total",
		Help:      "Total number of notes deleted.",
	},
)

// NoteCacheLookupsTotal counts single-note cache lookups.
// Label:
//   - result: "hit" or "miss"
var NoteCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of note cache lookups, by result (hit/miss).",
	},
	[]string{"result"},
)

// AuthLoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "inactive"
var AuthLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_logins_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"result"},
)
