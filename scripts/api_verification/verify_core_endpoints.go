// Package main checks that a running ledger API answers its core endpoints.
// It can be run with: go run scripts/api_verification/verify_core_endpoints.go
//
// Set TEST_ACCESS_TOKEN to include authenticated routes, TEST_DRIVER_ID for the
// driver wallet routes and TEST_ADMIN=true for the admin payout listing.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	baseURLEnvVar     = "API_BASE_URL"
	accessTokenEnvVar = "TEST_ACCESS_TOKEN"
	driverIDEnvVar    = "TEST_DRIVER_ID"
	adminEnvVar       = "TEST_ADMIN"
	defaultBaseURL    = "http://localhost:8080"
)

type EndpointTest struct {
	Name           string
	Method         string
	Path           string
	RequiresAuth   bool
	RequestBody    interface{}
	ExpectedStatus int
}

func main() {
	baseURL := os.Getenv(baseURLEnvVar)
	if baseURL == "" {
		baseURL = defaultBaseURL
		fmt.Printf("No %s set, using default: %s\n", baseURLEnvVar, defaultBaseURL)
	}

	accessToken := os.Getenv(accessTokenEnvVar)
	if accessToken == "" {
		fmt.Printf("No %s set. Only public endpoints will be checked.\n", accessTokenEnvVar)
	}

	fmt.Println("KidRide Ledger API Verification")
	fmt.Println("===============================")
	fmt.Printf("Target API: %s\n\n", baseURL)

	endDate := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	endpoints := []EndpointTest{
		{Name: "Health Check", Method: http.MethodGet, Path: "/health", ExpectedStatus: http.StatusOK},
		{Name: "Liveness Check", Method: http.MethodGet, Path: "/health/liveness", ExpectedStatus: http.StatusOK},
		{Name: "Readiness Check", Method: http.MethodGet, Path: "/health/readiness", ExpectedStatus: http.StatusOK},
		{Name: "Metrics", Method: http.MethodGet, Path: "/metrics", ExpectedStatus: http.StatusOK},
		{Name: "Unauthenticated Split", Method: http.MethodGet, Path: "/v1/payments/split?totalAmount=10000&endDate=" + endDate, ExpectedStatus: http.StatusUnauthorized},

		{Name: "Split Preview", Method: http.MethodGet, Path: "/v1/payments/split?totalAmount=10000&endDate=" + endDate, RequiresAuth: true, ExpectedStatus: http.StatusOK},
		{Name: "Unknown Transaction", Method: http.MethodGet, Path: "/v1/payments/transactions/does-not-exist", RequiresAuth: true, ExpectedStatus: http.StatusNotFound},
	}

	if driverID := os.Getenv(driverIDEnvVar); driverID != "" {
		endpoints = append(endpoints,
			EndpointTest{Name: "Driver Wallet", Method: http.MethodGet, Path: "/v1/drivers/" + driverID + "/wallet", RequiresAuth: true, ExpectedStatus: http.StatusOK},
			EndpointTest{Name: "Wallet Transactions", Method: http.MethodGet, Path: "/v1/drivers/" + driverID + "/wallet/transactions?limit=5", RequiresAuth: true, ExpectedStatus: http.StatusOK},
		)
	}
	if os.Getenv(adminEnvVar) == "true" {
		endpoints = append(endpoints,
			EndpointTest{Name: "Payout Batches", Method: http.MethodGet, Path: "/v1/admin/payouts?limit=5", RequiresAuth: true, ExpectedStatus: http.StatusOK},
		)
	}

	successCount := 0
	totalCount := 0

	for _, test := range endpoints {
		if test.RequiresAuth && accessToken == "" {
			fmt.Printf("SKIP %s (requires authentication)\n", test.Name)
			continue
		}

		totalCount++
		fmt.Printf("Checking %s... ", test.Name)

		ok, statusCode, body := testEndpoint(baseURL, test, accessToken)
		if ok {
			successCount++
			fmt.Printf("ok (HTTP %d)\n", statusCode)
		} else {
			fmt.Printf("FAILED (HTTP %d, expected %d)\n", statusCode, test.ExpectedStatus)
			if body != "" {
				fmt.Printf("    %s\n", body)
			}
		}
	}

	fmt.Println("\nSummary:")
	fmt.Printf("Passed: %d/%d\n", successCount, totalCount)

	if successCount != totalCount {
		fmt.Println("Some endpoints failed.")
		os.Exit(1)
	}
	fmt.Println("All checked endpoints answered as expected.")
}

func testEndpoint(baseURL string, test EndpointTest, accessToken string) (bool, int, string) {
	client := &http.Client{Timeout: 10 * time.Second}

	var body io.Reader
	if test.RequestBody != nil {
		jsonBody, err := json.Marshal(test.RequestBody)
		if err != nil {
			return false, 0, fmt.Sprintf("Error encoding body: %v", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(test.Method, baseURL+test.Path, body)
	if err != nil {
		return false, 0, fmt.Sprintf("Error creating request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if test.RequiresAuth && accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, 0, fmt.Sprintf("Error executing request: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode == test.ExpectedStatus, resp.StatusCode, string(respBody)
}
