package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_ListDeployments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/deployments" {
			t.Errorf("Expected path /api/v1/deployments, got %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if got := r.URL.Query().Get("network"); got != "sepolia" {
			t.Errorf("Expected network=sepolia, got %q", got)
		}
		if got := r.URL.Query().Get("chain_id"); got != "11155111" {
			t.Errorf("Expected chain_id=11155111, got %q", got)
		}
		if r.URL.Query().Has("cursor") {
			t.Errorf("Expected no cursor parameter")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"chainId": 11155111, "address": "0xabc", "contractName": "Exchange"},
			},
			"pagination": map[string]any{
				"limit":      20,
				"hasMore":    true,
				"nextCursor": "b2Zmc2V0OjIw",
			},
		})
	}))
	defer server.Close()

	client := New(server.URL + "/")
	resp, err := client.ListDeployments(context.Background(), ListOptions{ChainID: 11155111, Network: "sepolia"})
	if err != nil {
		t.Fatalf("ListDeployments() error = %v", err)
	}

	if len(resp.Data) != 1 {
		t.Fatalf("ListDeployments() returned %d deployments, want 1", len(resp.Data))
	}
	if resp.Data[0].ContractName != "Exchange" {
		t.Errorf("ListDeployments()[0].ContractName = %s, want Exchange", resp.Data[0].ContractName)
	}
	if !resp.Pagination.HasMore || resp.Pagination.NextCursor == "" {
		t.Errorf("ListDeployments().Pagination = %+v, want more pages", resp.Pagination)
	}
}

func TestClient_GetDeployment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/deployments/5/0xabc" {
			t.Errorf("Expected path /api/v1/deployments/5/0xabc, got %s", r.URL.Path)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":                 "d1",
			"chainId":            5,
			"network":            "goerli",
			"address":            "0xabc",
			"contractName":       "Exchange",
			"blockNumber":        42,
			"constructorArgs":    []string{"0x0000000000000000000000000000000000000001"},
			"verificationStatus": "already_verified",
		})
	}))
	defer server.Close()

	client := New(server.URL)
	d, err := client.GetDeployment(context.Background(), 5, "0xabc")
	if err != nil {
		t.Fatalf("GetDeployment() error = %v", err)
	}

	if d.Network != "goerli" {
		t.Errorf("GetDeployment().Network = %s, want goerli", d.Network)
	}
	if d.BlockNumber != 42 {
		t.Errorf("GetDeployment().BlockNumber = %d, want 42", d.BlockNumber)
	}
	if d.VerificationStatus != "already_verified" {
		t.Errorf("GetDeployment().VerificationStatus = %s, want already_verified", d.VerificationStatus)
	}
	if string(d.ConstructorArgs) != `["0x0000000000000000000000000000000000000001"]` {
		t.Errorf("GetDeployment().ConstructorArgs = %s", d.ConstructorArgs)
	}
}

func TestClient_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"code":    "NOT_FOUND",
				"message": "Deployment not found",
			},
		})
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.GetDeployment(context.Background(), 1, "0xabc")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.Code != "NOT_FOUND" {
		t.Errorf("APIError.Code = %s, want NOT_FOUND", apiErr.Code)
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound() = false, want true")
	}
}

func TestClient_ErrorWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(server.URL).Health(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Code != "HTTP_502" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if IsNotFound(err) {
		t.Errorf("IsNotFound() = true, want false")
	}
}

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Expected path /health, got %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	if err := New(server.URL).Health(context.Background()); err != nil {
		t.Errorf("Health() error = %v", err)
	}
}
