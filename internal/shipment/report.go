package shipment

// MaxReportedErrors bounds the error and warning messages a report keeps.
const MaxReportedErrors = 10

// ProgressFunc receives (rows processed, total rows) after each batch.
type ProgressFunc func(processed, total int)

// Report accounts for one run. Counts are exact; message lists keep the
// first MaxReportedErrors entries.
type Report struct {
	Total        int      `json:"total"`
	Processed    int      `json:"processed"`
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	SkippedCount int      `json:"skipped_count"`
	WarningCount int      `json:"warning_count"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	Packages     []string `json:"packages"`
	Cancelled    bool     `json:"cancelled"`

	progress ProgressFunc
}

func newReport(total int, progress ProgressFunc) *Report {
	return &Report{
		Total:    total,
		Errors:   []string{},
		Warnings: []string{},
		Packages: []string{},
		progress: progress,
	}
}

func (r *Report) addError(err error) {
	r.ErrorCount++
	if len(r.Errors) < MaxReportedErrors {
		r.Errors = append(r.Errors, err.Error())
	}
}

func (r *Report) addWarning(err error) {
	r.WarningCount++
	if len(r.Warnings) < MaxReportedErrors {
		r.Warnings = append(r.Warnings, err.Error())
	}
}

func (r *Report) skip() { r.SkippedCount++ }

func (r *Report) succeed(code string) {
	r.SuccessCount++
	r.Packages = append(r.Packages, code)
}

// advance records that rows up to processed are done and notifies the
// progress callback. It never moves backwards.
func (r *Report) advance(processed int) {
	if processed > r.Total {
		processed = r.Total
	}
	if processed < r.Processed {
		return
	}
	r.Processed = processed
	if r.progress != nil {
		r.progress(r.Processed, r.Total)
	}
}
