package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/gateway"
	"github.com/vladislavdragonenkov/deals/internal/service/catalog"
	"github.com/vladislavdragonenkov/deals/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/deals/internal/service/orders"
	"github.com/vladislavdragonenkov/deals/internal/storage/memory"
)

type okVerifier struct {
	err error
}

func (v *okVerifier) Verify(_ context.Context, _ gateway.Notification, _ int64) error {
	return v.err
}

func testGatewayConfig() gateway.Config {
	return gateway.Config{
		MerchantID:      "10000100",
		MerchantKey:     "46f0cd694581a",
		ProcessURL:      "https://sandbox.payfast.co.za/eng/process",
		ValidateURL:     "https://sandbox.payfast.co.za/eng/query/validate",
		PublicBaseURL:   "https://shop.example.com",
		SkipOriginCheck: true,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *lifecycle.Service) {
	t.Helper()

	cat := catalog.NewMemoryService(domain.Product{
		ID:            "prod-1",
		SKU:           "WID-100",
		Name:          "Widget",
		Stock:         5,
		BaseCostMinor: 100000,
		Active:        true,
	})
	svc := lifecycle.NewServiceWithoutMetrics(
		lifecycle.Config{TTL: time.Hour, MarkupFraction: 0.15},
		memory.NewDealRepository(),
		memory.NewOutboxRepository(),
		memory.NewJournalRepository(),
		memory.NewIdempotencyRepository(),
		cat,
		orders.NewMockSystem(),
		&okVerifier{},
		nil,
	)

	mux := http.NewServeMux()
	NewHandler(svc, testGatewayConfig(), nil).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeDeal(t *testing.T, resp *http.Response) dealResponse {
	t.Helper()
	defer resp.Body.Close()

	var deal dealResponse
	if err := json.NewDecoder(resp.Body).Decode(&deal); err != nil {
		t.Fatalf("decode deal: %v", err)
	}
	return deal
}

func createDealHTTP(t *testing.T, srv *httptest.Server) dealResponse {
	t.Helper()

	resp := postJSON(t, srv.URL+"/api/deals", createDealRequest{ProductID: "prod-1", Quantity: 2})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	return decodeDeal(t, resp)
}

func acceptPayload() acceptDealRequest {
	return acceptDealRequest{
		Buyer:   buyerPayload{FirstName: "Test", LastName: "Buyer", Email: "t@example.com"},
		Address: addressPayload{Line1: "1 Main Rd", City: "Cape Town"},
	}
}

func TestCreateDeal(t *testing.T) {
	srv, _ := newTestServer(t)

	deal := createDealHTTP(t, srv)
	if deal.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if deal.Status != string(domain.DealStatusPending) {
		t.Fatalf("status = %q, want pending", deal.Status)
	}
	if deal.OfferPriceMinor != 115000 {
		t.Fatalf("offer price = %d, want 115000", deal.OfferPriceMinor)
	}
	if deal.GrossMinor != 230000 {
		t.Fatalf("gross = %d, want 230000", deal.GrossMinor)
	}
}

func TestCreateDealValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/deals", createDealRequest{ProductID: "prod-1", Quantity: 0})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("zero quantity status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp = postJSON(t, srv.URL+"/api/deals", createDealRequest{ProductID: "missing", Quantity: 1})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unknown product status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}

	resp, err := http.Post(srv.URL+"/api/deals", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestGetDeal(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createDealHTTP(t, srv)

	resp, err := http.Get(srv.URL + "/api/deals/" + created.Token)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	deal := decodeDeal(t, resp)
	if deal.Token != created.Token {
		t.Fatalf("token = %q, want %q", deal.Token, created.Token)
	}

	resp, err = http.Get(srv.URL + "/api/deals/nonexistent")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown token status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestAcceptDealReturnsPaymentRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createDealHTTP(t, srv)

	resp := postJSON(t, srv.URL+"/api/deals/"+created.Token+"/accept", acceptPayload())
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var accepted acceptDealResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.Deal.Status != string(domain.DealStatusAccepted) {
		t.Fatalf("status = %q, want accepted", accepted.Deal.Status)
	}
	if accepted.Payment.ProcessURL != testGatewayConfig().ProcessURL {
		t.Fatalf("process url = %q", accepted.Payment.ProcessURL)
	}
	if !strings.Contains(accepted.Payment.HTMLForm, created.Token) {
		t.Fatal("html form does not carry the deal token")
	}

	fields := make(map[string]string, len(accepted.Payment.Fields))
	for _, f := range accepted.Payment.Fields {
		fields[f.Name] = f.Value
	}
	if fields["m_payment_id"] != created.Token {
		t.Fatalf("m_payment_id = %q, want %q", fields["m_payment_id"], created.Token)
	}
	if fields["amount"] != "2300.00" {
		t.Fatalf("amount = %q, want 2300.00", fields["amount"])
	}
	if fields["signature"] == "" {
		t.Fatal("expected signature field")
	}
}

func TestAcceptDealValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	created := createDealHTTP(t, srv)

	resp := postJSON(t, srv.URL+"/api/deals/"+created.Token+"/accept", acceptDealRequest{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty buyer status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp = postJSON(t, srv.URL+"/api/deals/nonexistent/accept", acceptPayload())
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown token status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestNotifyAcknowledges(t *testing.T) {
	srv, svc := newTestServer(t)

	created := createDealHTTP(t, srv)
	resp := postJSON(t, srv.URL+"/api/deals/"+created.Token+"/accept", acceptPayload())
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept status = %d", resp.StatusCode)
	}

	form := url.Values{}
	form.Set("m_payment_id", created.Token)
	form.Set("pf_payment_id", "pf-1001")
	form.Set("payment_status", "COMPLETE")
	form.Set("amount_gross", "2300.00")

	notifyResp, err := http.PostForm(srv.URL+"/api/gateway/notify", form)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	notifyResp.Body.Close()
	if notifyResp.StatusCode != http.StatusOK {
		t.Fatalf("notify status = %d, want %d", notifyResp.StatusCode, http.StatusOK)
	}

	deal, err := svc.Get(context.Background(), created.Token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if deal.Status != domain.DealStatusPaid {
		t.Fatalf("status = %q, want paid", deal.Status)
	}
	if deal.ExternalPaymentRef != "pf-1001" {
		t.Fatalf("payment ref = %q, want pf-1001", deal.ExternalPaymentRef)
	}
}

func TestNotifyMissingTokenRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{}
	form.Set("pf_payment_id", "pf-1002")
	form.Set("payment_status", "COMPLETE")

	resp, err := http.PostForm(srv.URL+"/api/gateway/notify", form)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestNotifyAlwaysAcksProcessingFailures(t *testing.T) {
	srv, _ := newTestServer(t)

	// Токен есть, но сделки с ним не существует: внутренняя ошибка
	// не должна просачиваться в ответ шлюзу.
	form := url.Values{}
	form.Set("m_payment_id", "unknown-token")
	form.Set("pf_payment_id", "pf-1003")
	form.Set("payment_status", "COMPLETE")
	form.Set("amount_gross", "10.00")

	resp, err := http.PostForm(srv.URL+"/api/gateway/notify", form)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
