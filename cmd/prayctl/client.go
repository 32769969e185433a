package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiClient 是对公开API的薄封装
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		baseURL: flagServer,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// prayerView 对应GET /api/prayers返回的列表项
type prayerView struct {
	Type struct {
		ID                   string `json:"id"`
		Name                 string `json:"name"`
		Kind                 string `json:"kind"`
		IncrementValue       int64  `json:"incrementValue"`
		TimeIncrementMinutes int64  `json:"timeIncrementMinutes"`
	} `json:"type"`
	Counter struct {
		TotalCount         int64 `json:"totalCount"`
		TotalTimeMinutes   int64 `json:"totalTimeMinutes"`
		UniqueContributors int64 `json:"uniqueContributors"`
	} `json:"counter"`
}

func (c *apiClient) listPrayers() ([]prayerView, error) {
	resp, err := c.http.Get(c.baseURL + "/api/prayers")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("服务返回 %s", resp.Status)
	}

	var prayers []prayerView
	if err := json.NewDecoder(resp.Body).Decode(&prayers); err != nil {
		return nil, fmt.Errorf("无法解析响应: %w", err)
	}
	return prayers, nil
}

// submitResponse 对应POST /api/prayer/increment的响应
type submitResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	NewTotal      int64  `json:"newTotal"`
	SecondsToWait int    `json:"secondsToWait"`
}

func (c *apiClient) submitIncrement(prayerTypeID, userID string) (*submitResponse, int, error) {
	body, _ := json.Marshal(map[string]string{
		"prayerTypeId": prayerTypeID,
		"userId":       userID,
	})

	resp, err := c.http.Post(c.baseURL+"/api/prayer/increment",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var result submitResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("无法解析响应: %w", err)
	}
	return &result, resp.StatusCode, nil
}
