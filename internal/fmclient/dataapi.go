package fmclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DataAPI talks to a FileMaker server over the Data API v1 (JSON over HTTPS).
type DataAPI struct {
	baseURL  string
	database string
	username string
	password string
	client   *http.Client
	logger   *slog.Logger
}

// NewDataAPI creates a Data API transport for one database. skipTLSVerify
// disables certificate checking for servers with self-signed certificates.
func NewDataAPI(baseURL, database, username, password string, skipTLSVerify bool, logger *slog.Logger) *DataAPI {
	transport := http.DefaultTransport
	if skipTLSVerify {
		logger.Warn("TLS certificate verification disabled for FileMaker server", "url", baseURL)
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &DataAPI{
		baseURL:  strings.TrimRight(baseURL, "/"),
		database: database,
		username: username,
		password: password,
		client:   &http.Client{Transport: transport},
		logger:   logger,
	}
}

func (a *DataAPI) BaseURL() string { return a.baseURL }

// apiMessage is the code/message pair FileMaker attaches to every response.
type apiMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiEnvelope struct {
	Response struct {
		Token string      `json:"token"`
		Data  []apiRecord `json:"data"`
	} `json:"response"`
	Messages []apiMessage `json:"messages"`
}

type apiRecord struct {
	FieldData map[string]any `json:"fieldData"`
	RecordID  string         `json:"recordId"`
	ModID     string         `json:"modId"`
}

func (a *DataAPI) dbURL(parts ...string) string {
	segs := append([]string{a.baseURL, "fmi", "data", "v1", "databases", url.PathEscape(a.database)}, parts...)
	return strings.Join(segs, "/")
}

func (a *DataAPI) Login(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.dbURL("sessions"), strings.NewReader("{}"))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.SetBasicAuth(a.username, a.password)
	req.Header.Set("Content-Type", "application/json")

	env, err := a.do(req)
	if err != nil {
		return "", err
	}
	if env.Response.Token == "" {
		return "", fmt.Errorf("login response carried no session token")
	}
	a.logger.Debug("filemaker session established", "database", a.database)
	return env.Response.Token, nil
}

func (a *DataAPI) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.dbURL("sessions", url.PathEscape(token)), nil)
	if err != nil {
		return fmt.Errorf("creating logout request: %w", err)
	}
	if _, err := a.do(req); err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}

func (a *DataAPI) Find(ctx context.Context, token, layout string, query []FieldQuery) ([]Record, error) {
	conjunction := map[string]string{}
	for _, q := range query {
		conjunction[q.Field] = q.Value
	}
	body := map[string]any{
		"query": []map[string]string{conjunction},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling find request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.dbURL("layouts", url.PathEscape(layout), "_find"), bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating find request: %w", err)
	}
	a.authorize(req, token)

	env, err := a.do(req)
	if err != nil {
		return nil, err
	}
	return toRecords(env.Response.Data), nil
}

func (a *DataAPI) GetRecords(ctx context.Context, token, layout string, sort []SortSpec, limit int) ([]Record, error) {
	u := a.dbURL("layouts", url.PathEscape(layout), "records")
	params := url.Values{}
	if limit > 0 {
		params.Set("_limit", strconv.Itoa(limit))
	}
	if len(sort) > 0 {
		type sortField struct {
			FieldName string `json:"fieldName"`
			SortOrder string `json:"sortOrder"`
		}
		specs := make([]sortField, 0, len(sort))
		for _, s := range sort {
			order := "ascend"
			if s.Descending {
				order = "descend"
			}
			specs = append(specs, sortField{FieldName: s.Field, SortOrder: order})
		}
		raw, err := json.Marshal(specs)
		if err != nil {
			return nil, fmt.Errorf("marshalling sort spec: %w", err)
		}
		params.Set("_sort", string(raw))
	}
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating records request: %w", err)
	}
	a.authorize(req, token)

	env, err := a.do(req)
	if err != nil {
		return nil, err
	}
	return toRecords(env.Response.Data), nil
}

func (a *DataAPI) EditRecord(ctx context.Context, token, layout, handle string, fields map[string]any) error {
	bodyBytes, err := json.Marshal(map[string]any{"fieldData": fields})
	if err != nil {
		return fmt.Errorf("marshalling edit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		a.dbURL("layouts", url.PathEscape(layout), "records", url.PathEscape(handle)),
		bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating edit request: %w", err)
	}
	a.authorize(req, token)

	if _, err := a.do(req); err != nil {
		return err
	}
	return nil
}

func (a *DataAPI) Probe(ctx context.Context, probeURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return fmt.Errorf("creating probe request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	// Any HTTP response at all proves reachability.
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (a *DataAPI) authorize(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
}

// do executes the request and decodes the envelope. Server-reported FileMaker
// error codes become *Fault; transport failures stay plain errors.
func (a *DataAPI) do(req *http.Request) (*apiEnvelope, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling filemaker API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading filemaker response: %w", err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("filemaker API returned HTTP %d: %s", resp.StatusCode, string(raw))
		}
		return nil, fmt.Errorf("decoding filemaker response: %w", err)
	}

	if fault := faultFromMessages(env.Messages); fault != nil {
		return nil, fault
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("filemaker API returned HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return &env, nil
}

// faultFromMessages converts the first non-zero message code into a Fault.
func faultFromMessages(msgs []apiMessage) *Fault {
	for _, m := range msgs {
		code, err := strconv.Atoi(m.Code)
		if err != nil || code == 0 {
			continue
		}
		return &Fault{Code: code, Message: m.Message}
	}
	return nil
}

func toRecords(data []apiRecord) []Record {
	records := make([]Record, 0, len(data))
	for _, r := range data {
		records = append(records, Record{Handle: r.RecordID, Fields: r.FieldData})
	}
	return records
}
