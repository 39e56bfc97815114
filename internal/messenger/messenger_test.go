package messenger

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, apiBase string) *Client {
	t.Helper()
	c, err := NewClient(
		WithPageAccessToken("page-token"),
		WithAppSecret("app-secret"),
		WithVerifyToken("verify-me"),
		WithAPIBase(apiBase),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresPageToken(t *testing.T) {
	t.Setenv("MESSENGER_PAGE_ACCESS_TOKEN", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error without page access token")
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.SendMessage(context.Background(), "psid_1", "hello!"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotPath != "/me/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody.Recipient.ID != "psid_1" || gotBody.Message.Text != "hello!" {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
}

func TestSendMessageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad token"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.SendMessage(context.Background(), "psid_1", "hello!"); err == nil {
		t.Error("expected error for non-2xx response")
	}
}

func TestVerifySignature(t *testing.T) {
	c := newTestClient(t, DefaultGraphAPIBase)
	payload := []byte(`{"object":"page"}`)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(payload)
	good := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !c.VerifySignature(payload, good) {
		t.Error("valid signature rejected")
	}
	if c.VerifySignature(payload, "sha256=deadbeef") {
		t.Error("invalid signature accepted")
	}
	if c.VerifySignature(payload, "") {
		t.Error("empty header accepted")
	}
	if c.VerifySignature(payload, "md5=abcd") {
		t.Error("wrong scheme accepted")
	}
	if c.VerifySignature(payload, "sha256=not-hex!") {
		t.Error("malformed hex accepted")
	}
}

func TestVerifySignatureWithoutSecretFailsClosed(t *testing.T) {
	c := &Client{}
	if c.VerifySignature([]byte("x"), "sha256=00") {
		t.Error("verification must fail without an app secret")
	}
}

func TestVerifyWebhook(t *testing.T) {
	c := newTestClient(t, DefaultGraphAPIBase)
	if challenge, ok := c.VerifyWebhook("subscribe", "verify-me", "12345"); !ok || challenge != "12345" {
		t.Errorf("handshake failed: %q %v", challenge, ok)
	}
	if _, ok := c.VerifyWebhook("subscribe", "wrong", "12345"); ok {
		t.Error("wrong token accepted")
	}
	if _, ok := c.VerifyWebhook("unsubscribe", "verify-me", "12345"); ok {
		t.Error("wrong mode accepted")
	}
}

func TestParseWebhookEvent(t *testing.T) {
	payload := []byte(`{
		"object": "page",
		"entry": [{
			"id": "page_1",
			"time": 1700000000,
			"messaging": [{
				"sender": {"id": "psid_9"},
				"message": {"mid": "m.1", "text": "hi bot"}
			}]
		}]
	}`)
	ev, err := ParseWebhookEvent(payload)
	if err != nil {
		t.Fatalf("ParseWebhookEvent: %v", err)
	}
	if ev.Object != "page" || len(ev.Entry) != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	m := ev.Entry[0].Messaging[0]
	if m.Sender.ID != "psid_9" || m.Message.Text != "hi bot" {
		t.Errorf("unexpected messaging entry: %+v", m)
	}

	if _, err := ParseWebhookEvent([]byte("{nope")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
