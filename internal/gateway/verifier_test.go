package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/signature"
)

func signedNotification(t *testing.T, passphrase string, overrides map[string]string) Notification {
	t.Helper()

	fields := map[string]string{
		"m_payment_id":   "tok-123",
		"pf_payment_id":  "999888",
		"payment_status": "COMPLETE",
		"amount_gross":   "2300.00",
	}
	for name, value := range overrides {
		fields[name] = value
	}

	fields[signature.SignatureField] = signature.Compute(fields, passphrase)

	form := make(url.Values, len(fields))
	for name, value := range fields {
		form.Set(name, value)
	}

	n, err := ParseNotification(form, "196.33.227.224:443")
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	return n
}

func validationServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func verifierConfig(validateURL string) Config {
	cfg := testConfig()
	cfg.ValidateURL = validateURL
	cfg.SkipOriginCheck = false
	cfg.AllowedHosts = []string{"196.33.227.224"}
	cfg.ValidateTimeout = 2 * time.Second
	return cfg
}

func TestVerifyHappyPath(t *testing.T) {
	srv := validationServer(t, "VALID")
	v := NewVerifier(verifierConfig(srv.URL))

	n := signedNotification(t, "secret-phrase", nil)
	if err := v.Verify(context.Background(), n, 230000); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyAmountWithinTolerance(t *testing.T) {
	srv := validationServer(t, "VALID")
	v := NewVerifier(verifierConfig(srv.URL))

	n := signedNotification(t, "secret-phrase", nil)
	if err := v.Verify(context.Background(), n, 230001); err != nil {
		t.Fatalf("expected 1 minor unit tolerance, got %v", err)
	}
}

func TestVerifyAmountMismatch(t *testing.T) {
	srv := validationServer(t, "VALID")
	v := NewVerifier(verifierConfig(srv.URL))

	// Расхождение в 2 минимальные единицы выходит за допуск.
	n := signedNotification(t, "secret-phrase", map[string]string{"amount_gross": "2299.98"})
	if err := v.Verify(context.Background(), n, 230000); !errors.Is(err, domain.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestVerifySignatureMismatch(t *testing.T) {
	srv := validationServer(t, "VALID")
	v := NewVerifier(verifierConfig(srv.URL))

	n := signedNotification(t, "wrong-phrase", nil)
	if err := v.Verify(context.Background(), n, 230000); !errors.Is(err, domain.ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestVerifyOriginRejectedBeforeSignature(t *testing.T) {
	srv := validationServer(t, "VALID")
	v := NewVerifier(verifierConfig(srv.URL))

	// Подпись нарочно сломана: до неё дело дойти не должно.
	n := signedNotification(t, "wrong-phrase", nil)
	n.SourceHost = "10.0.0.1"
	if err := v.Verify(context.Background(), n, 230000); !errors.Is(err, domain.ErrOriginRejected) {
		t.Fatalf("expected ErrOriginRejected, got %v", err)
	}
}

func TestVerifyOriginSkipInTestMode(t *testing.T) {
	srv := validationServer(t, "VALID")
	cfg := verifierConfig(srv.URL)
	cfg.SkipOriginCheck = true
	cfg.AllowedHosts = nil
	v := NewVerifier(cfg)

	n := signedNotification(t, "secret-phrase", nil)
	n.SourceHost = "10.0.0.1"
	if err := v.Verify(context.Background(), n, 230000); err != nil {
		t.Fatalf("Verify with origin check disabled: %v", err)
	}
}

func TestVerifyGatewayRejected(t *testing.T) {
	srv := validationServer(t, "INVALID")
	v := NewVerifier(verifierConfig(srv.URL))

	n := signedNotification(t, "secret-phrase", nil)
	if err := v.Verify(context.Background(), n, 230000); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected ErrGatewayRejected, got %v", err)
	}
}

func TestVerifyGatewayUnreachable(t *testing.T) {
	cfg := verifierConfig("http://127.0.0.1:1/validate")
	cfg.ValidateTimeout = 200 * time.Millisecond
	v := NewVerifier(cfg)

	n := signedNotification(t, "secret-phrase", nil)
	if err := v.Verify(context.Background(), n, 230000); !errors.Is(err, domain.ErrGatewayRejected) {
		t.Fatalf("expected ErrGatewayRejected on unreachable gateway, got %v", err)
	}
}

func TestVerifyEchoesReceivedFields(t *testing.T) {
	var echoed url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse echoed form: %v", err)
		}
		echoed = r.PostForm
		_, _ = w.Write([]byte("VALID"))
	}))
	defer srv.Close()

	v := NewVerifier(verifierConfig(srv.URL))
	n := signedNotification(t, "secret-phrase", nil)
	if err := v.Verify(context.Background(), n, 230000); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if echoed.Get("pf_payment_id") != "999888" {
		t.Errorf("pf_payment_id not echoed: %v", echoed)
	}
	if echoed.Get(signature.SignatureField) == "" {
		t.Error("signature not echoed")
	}
}

func TestParseNotificationRequiresToken(t *testing.T) {
	form := url.Values{}
	form.Set("pf_payment_id", "1")
	if _, err := ParseNotification(form, "1.2.3.4:80"); !errors.Is(err, domain.ErrTokenRequired) {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
}

func TestParseNotificationDropsUnknownFields(t *testing.T) {
	form := url.Values{}
	form.Set("m_payment_id", "tok-1")
	form.Set("pf_payment_id", "42")
	form.Set("injected_field", "boom")
	form.Set(signature.SignatureField, "abc")

	n, err := ParseNotification(form, "196.33.227.224:80")
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if _, ok := n.Raw["injected_field"]; ok {
		t.Error("field outside the gateway protocol kept in Raw")
	}
	if n.Raw[signature.SignatureField] != "abc" {
		t.Errorf("signature field = %q", n.Raw[signature.SignatureField])
	}
	if n.Raw["pf_payment_id"] != "42" {
		t.Errorf("pf_payment_id = %q", n.Raw["pf_payment_id"])
	}
}

func TestParseNotificationFields(t *testing.T) {
	form := url.Values{}
	form.Set("m_payment_id", " tok-1 ")
	form.Set("pf_payment_id", "42")
	form.Set("payment_status", "complete")
	form.Set("amount_gross", "1150.00")

	n, err := ParseNotification(form, "196.33.227.224:12345")
	if err != nil {
		t.Fatalf("ParseNotification: %v", err)
	}
	if n.Token != "tok-1" {
		t.Errorf("token = %q", n.Token)
	}
	if n.Status != PaymentStatusComplete {
		t.Errorf("status = %q, want COMPLETE", n.Status)
	}
	if n.GrossMinor != 115000 {
		t.Errorf("gross = %d", n.GrossMinor)
	}
	if n.SourceHost != "196.33.227.224" {
		t.Errorf("source host = %q", n.SourceHost)
	}
}
