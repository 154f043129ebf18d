// Package feishu writes analysis results back to a Feishu bitable.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://open.feishu.cn"

// Review field names in the partner spreadsheet.
const (
	fieldReviewOpinion  = "审核意见"
	fieldReportContent  = "Gemini分析内容"
	fieldAnalysisFlag   = "是否已经发起分析请求"
	fieldCreatorName    = "创作者名称"
	analysisFlagStarted = "是"
)

// Client talks to the Feishu open API for one bitable.
type Client struct {
	BaseURL   string
	AppID     string
	AppSecret string
	AppToken  string
	TableID   string

	client *http.Client

	token       string
	tokenExpiry time.Time
}

// NewClient creates a bitable client. The client is unconfigured (and
// writeback is skipped) when any credential is empty.
func NewClient(appID, appSecret, appToken, tableID string) *Client {
	return &Client{
		BaseURL:   defaultBaseURL,
		AppID:     appID,
		AppSecret: appSecret,
		AppToken:  appToken,
		TableID:   tableID,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured reports whether all credentials are present.
func (c *Client) IsConfigured() bool {
	return c.AppID != "" && c.AppSecret != "" && c.AppToken != "" && c.TableID != ""
}

type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// accessToken returns a cached tenant access token, refreshing it when it
// is within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"app_id":     c.AppID,
		"app_secret": c.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling token request: %w", err)
	}

	url := c.BaseURL + "/open-apis/auth/v3/tenant_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting tenant token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tenant token request returned status %d: %s", resp.StatusCode, body)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if tok.Code != 0 {
		return "", fmt.Errorf("feishu auth error %d: %s", tok.Code, tok.Msg)
	}

	c.token = tok.TenantAccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.Expire) * time.Second)
	return c.token, nil
}

// doJSON issues an authenticated JSON request and unwraps the Feishu
// envelope.
func (c *Client) doJSON(ctx context.Context, method, url string, payload any) (json.RawMessage, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feishu returned status %d: %s", resp.StatusCode, respBody)
	}

	var env apiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("feishu API error %d: %s", env.Code, env.Msg)
	}
	return env.Data, nil
}

// SearchRecords returns the ids of every record whose creator name field
// matches the given name.
func (c *Client) SearchRecords(ctx context.Context, creatorName string) ([]string, error) {
	url := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records/search",
		c.BaseURL, c.AppToken, c.TableID)

	payload := map[string]any{
		"filter": map[string]any{
			"conjunction": "and",
			"conditions": []map[string]any{
				{
					"field_name": fieldCreatorName,
					"operator":   "is",
					"value":      []string{creatorName},
				},
			},
		},
		"page_size": 100,
	}

	data, err := c.doJSON(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, fmt.Errorf("searching records for %s: %w", creatorName, err)
	}

	var result struct {
		Items []struct {
			RecordID string `json:"record_id"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing search result: %w", err)
	}

	ids := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		ids = append(ids, item.RecordID)
	}
	return ids, nil
}

// UpdateRecord writes the review opinion and report text to a single
// record.
func (c *Client) UpdateRecord(ctx context.Context, recordID, reviewOpinion, reportMarkdown string) error {
	url := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records/%s",
		c.BaseURL, c.AppToken, c.TableID, recordID)

	payload := map[string]any{
		"fields": map[string]any{
			fieldReviewOpinion: reviewOpinion,
			fieldReportContent: reportMarkdown,
		},
	}

	if _, err := c.doJSON(ctx, http.MethodPut, url, payload); err != nil {
		return fmt.Errorf("updating record %s: %w", recordID, err)
	}
	return nil
}

// BatchUpdateRecords writes the review opinion and report text to every
// given record and marks the analysis as started.
func (c *Client) BatchUpdateRecords(ctx context.Context, recordIDs []string, reviewOpinion, reportMarkdown string) error {
	if len(recordIDs) == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records/batch_update",
		c.BaseURL, c.AppToken, c.TableID)

	records := make([]map[string]any, 0, len(recordIDs))
	for _, id := range recordIDs {
		records = append(records, map[string]any{
			"record_id": id,
			"fields": map[string]any{
				fieldAnalysisFlag:  analysisFlagStarted,
				fieldReviewOpinion: reviewOpinion,
				fieldReportContent: reportMarkdown,
			},
		})
	}

	if _, err := c.doJSON(ctx, http.MethodPost, url, map[string]any{"records": records}); err != nil {
		return fmt.Errorf("batch updating %d records: %w", len(recordIDs), err)
	}
	return nil
}

// Publish writes the result back to the spreadsheet. All records matching
// the creator name are updated when a search succeeds; otherwise the single
// known record id is updated directly.
func (c *Client) Publish(ctx context.Context, recordID, creatorName, reviewOpinion, reportMarkdown string) error {
	ids, err := c.SearchRecords(ctx, creatorName)
	if err == nil && len(ids) > 0 {
		return c.BatchUpdateRecords(ctx, ids, reviewOpinion, reportMarkdown)
	}
	if recordID == "" {
		if err != nil {
			return err
		}
		return fmt.Errorf("no records found for creator %s", creatorName)
	}
	return c.UpdateRecord(ctx, recordID, reviewOpinion, reportMarkdown)
}
