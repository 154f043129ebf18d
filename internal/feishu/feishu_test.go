package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// bitableServer fakes the token endpoint plus the record endpoints used by
// the client and records what it received.
type bitableServer struct {
	*httptest.Server

	tokenRequests int
	searchBodies  []map[string]any
	updateBodies  []map[string]any
	batchBodies   []map[string]any
	searchIDs     []string
}

func newBitableServer(t *testing.T) *bitableServer {
	t.Helper()
	bs := &bitableServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		bs.tokenRequests++
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decoding token request: %v", err)
		}
		if creds["app_id"] != "cli_app" || creds["app_secret"] != "secret" {
			t.Errorf("unexpected credentials: %v", creds)
		}
		fmt.Fprint(w, `{"code":0,"msg":"ok","tenant_access_token":"t-test-token","expire":7200}`)
	})
	mux.HandleFunc("/open-apis/bitable/v1/apps/apptok/tables/tbl1/records/search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer t-test-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bs.searchBodies = append(bs.searchBodies, body)

		items := make([]map[string]string, 0, len(bs.searchIDs))
		for _, id := range bs.searchIDs {
			items = append(items, map[string]string{"record_id": id})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "ok",
			"data": map[string]any{"items": items},
		})
	})
	mux.HandleFunc("/open-apis/bitable/v1/apps/apptok/tables/tbl1/records/batch_update", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bs.batchBodies = append(bs.batchBodies, body)
		fmt.Fprint(w, `{"code":0,"msg":"ok","data":{}}`)
	})
	mux.HandleFunc("/open-apis/bitable/v1/apps/apptok/tables/tbl1/records/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bs.updateBodies = append(bs.updateBodies, body)
		fmt.Fprint(w, `{"code":0,"msg":"ok","data":{}}`)
	})

	bs.Server = httptest.NewServer(mux)
	t.Cleanup(bs.Close)
	return bs
}

func testClient(srv *bitableServer) *Client {
	c := NewClient("cli_app", "secret", "apptok", "tbl1")
	c.BaseURL = srv.URL
	return c
}

func TestIsConfigured(t *testing.T) {
	if !NewClient("a", "b", "c", "d").IsConfigured() {
		t.Error("expected configured client")
	}
	if NewClient("a", "b", "c", "").IsConfigured() {
		t.Error("expected unconfigured client with missing table id")
	}
	if NewClient("", "b", "c", "d").IsConfigured() {
		t.Error("expected unconfigured client with missing app id")
	}
}

func TestSearchRecordsFilterShape(t *testing.T) {
	srv := newBitableServer(t)
	srv.searchIDs = []string{"rec1", "rec2"}
	c := testClient(srv)

	ids, err := c.SearchRecords(context.Background(), "美妆小妹")
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(ids) != 2 || ids[0] != "rec1" || ids[1] != "rec2" {
		t.Errorf("unexpected ids %v", ids)
	}

	if len(srv.searchBodies) != 1 {
		t.Fatalf("expected one search request, got %d", len(srv.searchBodies))
	}
	body := srv.searchBodies[0]
	filter, ok := body["filter"].(map[string]any)
	if !ok {
		t.Fatalf("missing filter in %v", body)
	}
	if filter["conjunction"] != "and" {
		t.Errorf("unexpected conjunction %v", filter["conjunction"])
	}
	conds := filter["conditions"].([]any)
	cond := conds[0].(map[string]any)
	if cond["field_name"] != "创作者名称" || cond["operator"] != "is" {
		t.Errorf("unexpected condition %v", cond)
	}
	values := cond["value"].([]any)
	if len(values) != 1 || values[0] != "美妆小妹" {
		t.Errorf("unexpected condition value %v", values)
	}
	if body["page_size"] != float64(100) {
		t.Errorf("unexpected page_size %v", body["page_size"])
	}
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	srv := newBitableServer(t)
	c := testClient(srv)

	for i := 0; i < 3; i++ {
		if _, err := c.SearchRecords(context.Background(), "creator"); err != nil {
			t.Fatalf("SearchRecords: %v", err)
		}
	}
	if srv.tokenRequests != 1 {
		t.Errorf("expected one token request, got %d", srv.tokenRequests)
	}
}

func TestPublishBatchUpdatesSearchMatches(t *testing.T) {
	srv := newBitableServer(t)
	srv.searchIDs = []string{"recA", "recB"}
	c := testClient(srv)

	err := c.Publish(context.Background(), "recFallback", "美妆小妹", "值得考虑", "# 报告")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(srv.batchBodies) != 1 {
		t.Fatalf("expected one batch update, got %d", len(srv.batchBodies))
	}
	if len(srv.updateBodies) != 0 {
		t.Error("expected no single-record update when search matched")
	}

	records := srv.batchBodies[0]["records"].([]any)
	if len(records) != 2 {
		t.Fatalf("expected 2 batch records, got %d", len(records))
	}
	first := records[0].(map[string]any)
	if first["record_id"] != "recA" {
		t.Errorf("unexpected record id %v", first["record_id"])
	}
	fields := first["fields"].(map[string]any)
	if fields["审核意见"] != "值得考虑" {
		t.Errorf("unexpected review opinion %v", fields["审核意见"])
	}
	if fields["Gemini分析内容"] != "# 报告" {
		t.Errorf("unexpected report content %v", fields["Gemini分析内容"])
	}
	if fields["是否已经发起分析请求"] != "是" {
		t.Errorf("expected analysis flag set, got %v", fields["是否已经发起分析请求"])
	}
}

func TestPublishFallsBackToKnownRecord(t *testing.T) {
	srv := newBitableServer(t)
	c := testClient(srv)

	err := c.Publish(context.Background(), "recKnown", "unknown creator", "建议观望", "# 报告")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(srv.updateBodies) != 1 {
		t.Fatalf("expected one single-record update, got %d", len(srv.updateBodies))
	}
	fields := srv.updateBodies[0]["fields"].(map[string]any)
	if fields["审核意见"] != "建议观望" {
		t.Errorf("unexpected review opinion %v", fields["审核意见"])
	}
}

func TestPublishNoMatchNoRecordID(t *testing.T) {
	srv := newBitableServer(t)
	c := testClient(srv)

	if err := c.Publish(context.Background(), "", "unknown creator", "建议观望", "x"); err == nil {
		t.Error("expected error when nothing can be updated")
	}
}

func TestAPIErrorEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":0,"msg":"ok","tenant_access_token":"tok","expire":7200}`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":1254043,"msg":"table not found"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient("cli_app", "secret", "apptok", "tbl1")
	c.BaseURL = srv.URL

	_, err := c.SearchRecords(context.Background(), "creator")
	if err == nil {
		t.Fatal("expected error from non-zero envelope code")
	}
	if got := err.Error(); !strings.Contains(got, "1254043") || !strings.Contains(got, "table not found") {
		t.Errorf("expected code and message in error, got %q", got)
	}
}

func TestAuthErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":10013,"msg":"app_id invalid"}`)
	}))
	defer srv.Close()

	c := NewClient("bad", "creds", "apptok", "tbl1")
	c.BaseURL = srv.URL

	if _, err := c.SearchRecords(context.Background(), "creator"); err == nil {
		t.Error("expected auth error to surface")
	}
}
