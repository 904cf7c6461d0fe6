package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	visitsCreated        atomic.Int64
	visitConflicts       atomic.Int64
	visitStatusChanges   atomic.Int64
	emailsSent           atomic.Int64
	emailsFailed         atomic.Int64
	directoryCacheHits   atomic.Int64
	directoryCacheMisses atomic.Int64
)

func VisitCreated()       { visitsCreated.Add(1) }
func VisitConflict()      { visitConflicts.Add(1) }
func VisitStatusChanged() { visitStatusChanges.Add(1) }
func EmailSent()          { emailsSent.Add(1) }
func EmailFailed()        { emailsFailed.Add(1) }
func DirectoryCacheHit()  { directoryCacheHits.Add(1) }
func DirectoryCacheMiss() { directoryCacheMisses.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP hms_visits_created_total Number of visits opened since process start.\n")
	fmt.Fprintf(w, "# TYPE hms_visits_created_total counter\n")
	fmt.Fprintf(w, "hms_visits_created_total %d\n", visitsCreated.Load())

	fmt.Fprintf(w, "# HELP hms_visit_conflicts_total Number of visit creations rejected because the patient already had an active visit.\n")
	fmt.Fprintf(w, "# TYPE hms_visit_conflicts_total counter\n")
	fmt.Fprintf(w, "hms_visit_conflicts_total %d\n", visitConflicts.Load())

	fmt.Fprintf(w, "# HELP hms_visit_status_changes_total Number of visit status transitions applied.\n")
	fmt.Fprintf(w, "# TYPE hms_visit_status_changes_total counter\n")
	fmt.Fprintf(w, "hms_visit_status_changes_total %d\n", visitStatusChanges.Load())

	fmt.Fprintf(w, "# HELP hms_emails_sent_total Number of notification emails delivered.\n")
	fmt.Fprintf(w, "# TYPE hms_emails_sent_total counter\n")
	fmt.Fprintf(w, "hms_emails_sent_total %d\n", emailsSent.Load())

	fmt.Fprintf(w, "# HELP hms_emails_failed_total Number of notification emails that failed delivery.\n")
	fmt.Fprintf(w, "# TYPE hms_emails_failed_total counter\n")
	fmt.Fprintf(w, "hms_emails_failed_total %d\n", emailsFailed.Load())

	fmt.Fprintf(w, "# HELP hms_directory_cache_hits_total Number of directory reads served from the cache.\n")
	fmt.Fprintf(w, "# TYPE hms_directory_cache_hits_total counter\n")
	fmt.Fprintf(w, "hms_directory_cache_hits_total %d\n", directoryCacheHits.Load())

	fmt.Fprintf(w, "# HELP hms_directory_cache_misses_total Number of directory reads that fell through to postgres.\n")
	fmt.Fprintf(w, "# TYPE hms_directory_cache_misses_total counter\n")
	fmt.Fprintf(w, "hms_directory_cache_misses_total %d\n", directoryCacheMisses.Load())
}

// Handler serves the scrape endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	}
}
