package server

import "sync"

// Metrics holds in-process counters exposed at /metrics.
type Metrics struct {
	mu sync.RWMutex

	uploadsTotal      int64
	uploadBytesTotal  int64
	uploadErrorsTotal int64

	downloadsTotal      int64
	downloadBytesTotal  int64
	downloadErrorsTotal int64
	rangeRequestsTotal  int64

	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64
}

// NewMetrics creates an empty counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest counts one handled request by status class.
func (m *Metrics) RecordRequest(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++
	switch {
	case status >= 500:
		m.requestErrors5xx++
	case status >= 400:
		m.requestErrors4xx++
	}
}

// RecordUpload counts a successful upload.
func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
}

// RecordUploadError counts a failed upload.
func (m *Metrics) RecordUploadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrorsTotal++
}

// RecordDownload counts a served download; partial marks range
// responses.
func (m *Metrics) RecordDownload(bytes int64, partial bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
	m.downloadBytesTotal += bytes
	if partial {
		m.rangeRequestsTotal++
	}
}

// RecordDownloadError counts a failed download.
func (m *Metrics) RecordDownloadError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadErrorsTotal++
}

// Snapshot returns the counters as a JSON-friendly map.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int64{
		"uploads_total":         m.uploadsTotal,
		"upload_bytes_total":    m.uploadBytesTotal,
		"upload_errors_total":   m.uploadErrorsTotal,
		"downloads_total":       m.downloadsTotal,
		"download_bytes_total":  m.downloadBytesTotal,
		"download_errors_total": m.downloadErrorsTotal,
		"range_requests_total":  m.rangeRequestsTotal,
		"requests_total":        m.requestsTotal,
		"request_errors_4xx":    m.requestErrors4xx,
		"request_errors_5xx":    m.requestErrors5xx,
	}
}
