// Package expert는 프로젝트 자료 기반 평가 전문가 추천 파이프라인을 구현합니다.
// 키워드 추출 → 웹 검색 → 추천 표 생성 → 표 파싱의 4단계로 구성됩니다.
package expert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// 전문가 검색 시 우선하는 도메인. 중국 고등교육기관/연구기관/학술 프로필 위주입니다.
var expertSearchDomains = []string{
	"edu.cn",
	"cas.cn",
	"baike.baidu.com",
	"scholar.google.com",
	"researchgate.net",
	"linkedin.cn",
}

// SearchResult는 검색 결과 1건입니다.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// SearchResponse는 검색 쿼리 1회의 응답입니다.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeDomains []string `json:"include_domains"`
}

// TavilyClient는 Tavily 검색 API 클라이언트입니다.
// API 키를 콤마로 구분해 여러 개 지정하면 호출마다 순환(round-robin)합니다.
type TavilyClient struct {
	baseURL    string
	apiKeys    []string
	keyCursor  atomic.Uint64
	maxResults int
	httpClient *http.Client
	logger     *zap.Logger
}

// TavilyClientOption은 TavilyClient 옵션입니다.
type TavilyClientOption func(*TavilyClient)

// WithTavilyHTTPClient는 HTTP 클라이언트를 설정합니다.
func WithTavilyHTTPClient(client *http.Client) TavilyClientOption {
	return func(c *TavilyClient) {
		c.httpClient = client
	}
}

// WithTavilyLogger는 로거를 설정합니다.
func WithTavilyLogger(logger *zap.Logger) TavilyClientOption {
	return func(c *TavilyClient) {
		c.logger = logger
	}
}

// WithTavilyBaseURL은 검색 엔드포인트를 설정합니다.
func WithTavilyBaseURL(baseURL string) TavilyClientOption {
	return func(c *TavilyClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithTavilyMaxResults는 쿼리당 최대 결과 수를 설정합니다.
func WithTavilyMaxResults(n int) TavilyClientOption {
	return func(c *TavilyClient) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// NewTavilyClient는 새 Tavily 클라이언트를 생성합니다.
// apiKey가 비어있으면 nil을 반환합니다 (검색 기능 비활성).
func NewTavilyClient(apiKey string, opts ...TavilyClientOption) *TavilyClient {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}

	var keys []string
	for _, k := range strings.Split(apiKey, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	c := &TavilyClient{
		baseURL:    "https://api.tavily.com/search",
		apiKeys:    keys,
		maxResults: 5,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// nextKey는 다음 API 키를 반환합니다 (round-robin).
func (c *TavilyClient) nextKey() string {
	idx := c.keyCursor.Add(1) - 1
	return c.apiKeys[idx%uint64(len(c.apiKeys))]
}

// Search는 검색 쿼리 1회를 실행합니다.
func (c *TavilyClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:         c.nextKey(),
		Query:          query,
		SearchDepth:    "advanced",
		MaxResults:     c.maxResults,
		IncludeAnswer:  true,
		IncludeDomains: expertSearchDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("검색 요청 직렬화 실패: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("검색 요청 생성 실패: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SearchError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SearchError{
			Query:  query,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", string(errBody)),
		}
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("검색 응답 파싱 실패: %w", err)
	}

	return &result, nil
}

// 실행할 최대 병렬 쿼리 수
const maxExpertQueries = 4

// buildExpertQueries는 키워드 목록으로 지역/직능별 검색 쿼리를 구성합니다.
func buildExpertQueries(keywords []string) []string {
	var queries []string

	head := keywords
	if len(head) > 2 {
		head = head[:2]
	}
	for _, kw := range head {
		queries = append(queries, kw+" 专家 教授 深圳大学 OR 南方科技大学 OR 哈工大深圳 OR 清华深圳研究院")
	}
	for _, kw := range head {
		queries = append(queries, kw+" CTO OR 技术总监 OR 首席科学家 深圳 企业")
	}
	if len(keywords) > 0 {
		queries = append(queries, keywords[0]+" 专家 教授 中山大学 OR 华南理工 OR 暨南大学")
	}

	if len(queries) > maxExpertQueries {
		queries = queries[:maxExpertQueries]
	}
	return queries
}

// SearchExperts는 키워드 목록으로 전문가 후보를 병렬 검색합니다.
// 개별 쿼리 실패는 빈 결과로 강등되고, URL 기준으로 중복을 제거합니다.
func (c *TavilyClient) SearchExperts(ctx context.Context, keywords []string) []SearchResult {
	queries := buildExpertQueries(keywords)
	if len(queries) == 0 {
		return nil
	}

	responses := make([][]SearchResult, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			resp, err := c.Search(ctx, query)
			if err != nil {
				c.logger.Warn("Expert search query failed (ignored)",
					zap.String("query", query),
					zap.Error(err),
				)
				return
			}
			responses[i] = resp.Results
		}(i, query)
	}
	wg.Wait()

	seen := make(map[string]bool)
	var unique []SearchResult
	for _, results := range responses {
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			unique = append(unique, r)
		}
	}

	c.logger.Info("Expert search completed",
		zap.Int("queries", len(queries)),
		zap.Int("results", len(unique)),
	)
	return unique
}
