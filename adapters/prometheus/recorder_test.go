package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-restclient/core"
	"github.com/goliatone/go-restclient/transport"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountersAndHistograms(t *testing.T) {
	recorder := NewRecorder(nil)
	ctx := context.Background()

	tags := map[string]string{"client": "billing", "method": "GET", "status": "success", "ignored": "x"}
	recorder.IncCounter(ctx, "restclient.call.total", 1, tags)
	recorder.IncCounter(ctx, "restclient.call.total", 2, tags)
	recorder.ObserveHistogram(ctx, "restclient.call.duration_ms", 12, tags)

	counter := recorder.counters["restclient_call_total"]
	if counter == nil {
		t.Fatalf("expected sanitized counter name")
	}
	got := testutil.ToFloat64(counter.With(prom.Labels{
		"client": "billing", "method": "GET", "status": "success",
		"status_code": "", "error_kind": "", "job_id": "",
	}))
	if got != 3 {
		t.Fatalf("expected counter value 3, got %v", got)
	}

	count, err := testutil.GatherAndCount(recorder.Registry(), "restclient_call_duration_ms")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one histogram series, got %d", count)
	}
}

func TestRecorderNamespaceAndNegativeValues(t *testing.T) {
	recorder := NewRecorder(prom.NewRegistry(), WithNamespace("app"), WithLabels("status"))
	recorder.IncCounter(context.Background(), "restclient.call.total", -1, nil)
	if len(recorder.counters) != 0 {
		t.Fatalf("expected negative increments to be ignored")
	}
	recorder.IncCounter(context.Background(), "restclient.call.total", 1, map[string]string{"status": "failure"})
	if _, ok := recorder.counters["app_restclient_call_total"]; !ok {
		t.Fatalf("expected namespaced metric, got %#v", recorder.counters)
	}
	recorder.IncCounter(context.Background(), " ", 1, nil)
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"restclient.call.total": "restclient_call_total",
		"9lives":                "_9lives",
		"a-b c":                 "a_b_c",
		"ok:name":               "ok:name",
	}
	for input, expected := range cases {
		if got := sanitizeName(input); got != expected {
			t.Fatalf("expected %q for %q, got %q", expected, input, got)
		}
	}
}

func TestRecorderWiredIntoClient(t *testing.T) {
	recorder := NewRecorder(nil)
	client, err := core.NewClient(core.Config{BaseURL: "http://example.com"},
		core.WithTransport(transport.NewStaticTransport(http.StatusOK, "OK", nil)),
		core.WithConverter(jsonConverter{}),
		core.WithExecutors(core.SynchronousExecutor{}, core.SynchronousExecutor{}),
		core.WithMetricsRecorder(recorder),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, _, err := core.Call[core.Empty](context.Background(), client, core.Request{URL: "ping"}); err != nil {
		t.Fatalf("call: %v", err)
	}

	server := httptest.NewServer(recorder.Handler())
	defer server.Close()
	res, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), `restclient_call_total{client="restclient"`) {
		t.Fatalf("expected call counter in exposition, got %s", body)
	}
}

type jsonConverter struct{}

func (jsonConverter) ContentType() string        { return "application/json" }
func (jsonConverter) FromBody([]byte, any) error { return nil }
func (jsonConverter) ToBody(any) ([]byte, error) { return nil, nil }
