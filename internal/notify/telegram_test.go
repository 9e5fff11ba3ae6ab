package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegram_PartialFailureReachesOtherChats(t *testing.T) {
	var delivered []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/botTOKEN/sendMessage") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var m telegramMessage
		_ = json.NewDecoder(r.Body).Decode(&m)
		if m.ParseMode != "HTML" {
			t.Errorf("parse mode %q", m.ParseMode)
		}
		if m.ChatID == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
			return
		}
		delivered = append(delivered, m.ChatID)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	tg := NewTelegram("TOKEN", []string{"bad", "1", "2"}, []string{"3"})
	tg.BaseURL = ts.URL

	err := tg.Send(context.Background(), AudienceError, "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("want error for bad chat, got %v", err)
	}
	if len(delivered) != 2 || delivered[0] != "1" || delivered[1] != "2" {
		t.Fatalf("other chats must still be reached: %v", delivered)
	}

	delivered = nil
	if err := tg.Send(context.Background(), AudienceInfo, "status"); err != nil {
		t.Fatalf("info send: %v", err)
	}
	if len(delivered) != 1 || delivered[0] != "3" {
		t.Fatalf("info chats: %v", delivered)
	}
}
