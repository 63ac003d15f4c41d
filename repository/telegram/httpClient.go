package telegramrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/OleksiukStepan/library-service-api/util/httpx"
)

type httpRepo struct {
	base   string
	client *http.Client
	poller *http.Client
}

func NewHTTP(botToken string) Repo {
	return &httpRepo{
		base:   "https://api.telegram.org/bot" + botToken,
		client: httpx.Client(),
		poller: httpx.LongPollClient(),
	}
}

func (r *httpRepo) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, _ := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.base+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return ErrForbidden
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram sendMessage to %d failed: %s", chatID, resp.Status)
	}
	return nil
}

func (r *httpRepo) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	body, _ := json.Marshal(map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message"},
	})
	// The request hangs for up to timeoutSec; bound it a little above that.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec+10)*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.base+"/getUpdates", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.poller.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram getUpdates failed: %s", resp.Status)
	}

	var out struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getUpdates returned ok=false")
	}
	return out.Result, nil
}
