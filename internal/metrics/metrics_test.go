package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue は指定メトリクスの単一カウンタ値を取得する。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric for %s, got %d", name, len(mf.GetMetric()))
			}
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestRecordLogin はログイン成否カウンタが増加することを検証する。
func TestRecordLogin(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginSuccess()
	c.RecordLoginFailure()

	if got := counterValue(t, reg, "fasilmap_login_success_total"); got != 2 {
		t.Errorf("login_success_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "fasilmap_login_fail_total"); got != 1 {
		t.Errorf("login_fail_total = %v, want 1", got)
	}
}

// TestRecordHTTPStatus はステータスコード別のラベル付けを検証する。
func TestRecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range metrics {
		if mf.GetName() != "fasilmap_http_status_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "status_code" {
					counts[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}

	if counts["200"] != 2 {
		t.Errorf("status 200 count = %v, want 2", counts["200"])
	}
	if counts["404"] != 1 {
		t.Errorf("status 404 count = %v, want 1", counts["404"])
	}
}

// TestRecordFacilityOperation は操作別のラベル付けを検証する。
func TestRecordFacilityOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFacilityOperation("create")
	c.RecordRateLimitRejection("login")
	c.RecordPhotoUpload()
	c.RecordRequestLatency(25 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range metrics {
		names[mf.GetName()] = true
	}

	for _, want := range []string{
		"fasilmap_facility_operations_total",
		"fasilmap_rate_limited_total",
		"fasilmap_photo_uploads_total",
		"fasilmap_request_latency_seconds",
	} {
		if !names[want] {
			t.Errorf("metric %s not found", want)
		}
	}
}

// TestHandler は/metricsのスクレイプ出力を検証する。
func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLoginSuccess()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("failed to scrape metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "fasilmap_login_success_total 1") {
		t.Errorf("scrape output should contain login counter, got:\n%s", body)
	}
}
