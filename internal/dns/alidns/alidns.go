// Package alidns implements dns.Provider against the Alibaba Cloud DNS
// RPC API (version 2015-01-09).
package alidns

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/pd-ddns/internal/dns"
)

const apiVersion = "2015-01-09"

func init() {
	dns.Register("alidns", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider for Alibaba Cloud DNS.
type Provider struct {
	endpoint        string
	accessKeyID     string
	accessKeySecret string
	client          *http.Client
	log             logr.Logger
}

// New creates an Alibaba Cloud DNS provider from the given settings map.
// Required settings: access_key_id, access_key_secret.
// Optional settings: region_id (default "cn-hangzhou"), endpoint
// (default "https://alidns.<region_id>.aliyuncs.com").
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	accessKeyID := settings["access_key_id"]
	if accessKeyID == "" {
		return nil, fmt.Errorf("alidns: missing required setting 'access_key_id'")
	}
	accessKeySecret := settings["access_key_secret"]
	if accessKeySecret == "" {
		return nil, fmt.Errorf("alidns: missing required setting 'access_key_secret'")
	}

	regionID := settings["region_id"]
	if regionID == "" {
		regionID = "cn-hangzhou"
	}
	endpoint := settings["endpoint"]
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://alidns.%s.aliyuncs.com", regionID)
	}

	return &Provider{
		endpoint:        strings.TrimRight(endpoint, "/"),
		accessKeyID:     accessKeyID,
		accessKeySecret: accessKeySecret,
		client:          &http.Client{Timeout: 10 * time.Second},
		log:             log,
	}, nil
}

// apiError is the JSON body Alibaba Cloud returns on request failure.
type apiError struct {
	Code      string `json:"Code"`
	Message   string `json:"Message"`
	RequestID string `json:"RequestId"`
}

// doRequest signs and executes one RPC call, decoding the JSON response
// into out.
func (p *Provider) doRequest(ctx context.Context, action string, params map[string]string, out interface{}) error {
	query := map[string]string{
		"Action":           action,
		"Format":           "JSON",
		"Version":          apiVersion,
		"AccessKeyId":      p.accessKeyID,
		"SignatureMethod":  "HMAC-SHA1",
		"SignatureVersion": "1.0",
		"SignatureNonce":   nonce(),
		"Timestamp":        time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
	for k, v := range params {
		query[k] = v
	}
	query["Signature"] = sign(http.MethodGet, query, p.accessKeySecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/?"+encodeQuery(query), nil)
	if err != nil {
		return fmt.Errorf("alidns: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("alidns: %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("alidns: %s: read response: %w", action, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			return fmt.Errorf("alidns: %s failed: %s: %s (request id %s)", action, apiErr.Code, apiErr.Message, apiErr.RequestID)
		}
		return fmt.Errorf("alidns: %s returned status %d: %s", action, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("alidns: decode %s response: %w", action, err)
	}
	return nil
}

// describeResponse is the shape returned by DescribeDomainRecords.
type describeResponse struct {
	TotalCount    int `json:"TotalCount"`
	DomainRecords struct {
		Record []recordRow `json:"Record"`
	} `json:"DomainRecords"`
}

// recordRow is one record row from DescribeDomainRecords.
type recordRow struct {
	RecordID string `json:"RecordId"`
	RR       string `json:"RR"`
	Type     string `json:"Type"`
	Value    string `json:"Value"`
	TTL      *int   `json:"TTL"`
}

// recordIDResponse is the shape returned by AddDomainRecord and
// UpdateDomainRecord.
type recordIDResponse struct {
	RecordID string `json:"RecordId"`
}

// ListRecords queries one page of records under domain whose RR matches
// rrKeyword, filtered to recordType.
func (p *Provider) ListRecords(ctx context.Context, domain, rrKeyword, recordType string, page, pageSize int) ([]dns.Record, error) {
	p.log.V(1).Info("listing records", "domain", domain, "rr", rrKeyword, "type", recordType)

	var resp describeResponse
	err := p.doRequest(ctx, "DescribeDomainRecords", map[string]string{
		"DomainName": domain,
		"RRKeyWord":  rrKeyword,
		"Type":       recordType,
		"PageNumber": strconv.Itoa(page),
		"PageSize":   strconv.Itoa(pageSize),
	}, &resp)
	if err != nil {
		return nil, err
	}

	records := make([]dns.Record, 0, len(resp.DomainRecords.Record))
	for _, row := range resp.DomainRecords.Record {
		records = append(records, dns.Record{
			ID:    row.RecordID,
			RR:    row.RR,
			Type:  row.Type,
			Value: row.Value,
			TTL:   row.TTL,
		})
	}
	return records, nil
}

// CreateRecord adds a new record under domain and returns its id.
func (p *Provider) CreateRecord(ctx context.Context, domain string, record dns.Record) (string, error) {
	p.log.Info("creating record", "domain", domain, "rr", record.RR, "type", record.Type, "value", record.Value)

	params := map[string]string{
		"DomainName": domain,
		"RR":         record.RR,
		"Type":       record.Type,
		"Value":      record.Value,
	}
	if record.TTL != nil {
		params["TTL"] = strconv.Itoa(*record.TTL)
	}

	var resp recordIDResponse
	if err := p.doRequest(ctx, "AddDomainRecord", params, &resp); err != nil {
		return "", err
	}

	p.log.Info("record created", "recordId", resp.RecordID)
	return resp.RecordID, nil
}

// UpdateRecord rewrites the record identified by recordID.
func (p *Provider) UpdateRecord(ctx context.Context, recordID string, record dns.Record) (string, error) {
	p.log.Info("updating record", "recordId", recordID, "rr", record.RR, "type", record.Type, "value", record.Value)

	params := map[string]string{
		"RecordId": recordID,
		"RR":       record.RR,
		"Type":     record.Type,
		"Value":    record.Value,
	}
	if record.TTL != nil {
		params["TTL"] = strconv.Itoa(*record.TTL)
	}

	var resp recordIDResponse
	if err := p.doRequest(ctx, "UpdateDomainRecord", params, &resp); err != nil {
		return "", err
	}

	p.log.Info("record updated", "recordId", resp.RecordID)
	return resp.RecordID, nil
}

// percentEncode applies the RFC 3986 variant Alibaba's signature scheme
// requires: space as %20, '*' as %2A, '~' unescaped.
func percentEncode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	e = strings.ReplaceAll(e, "%7E", "~")
	return e
}

// sign computes the HMAC-SHA1 signature over the canonicalized query.
func sign(method string, query map[string]string, secret string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(query[k]))
	}
	canonical := strings.Join(pairs, "&")

	stringToSign := method + "&" + percentEncode("/") + "&" + percentEncode(canonical)
	mac := hmac.New(sha1.New, []byte(secret+"&"))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// encodeQuery builds the final request query string, Signature included.
func encodeQuery(query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(query[k]))
	}
	return strings.Join(pairs, "&")
}

func nonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b)
}
