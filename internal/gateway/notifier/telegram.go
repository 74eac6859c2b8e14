package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tierbot/internal/logger"
)

const defaultAPIBase = "https://api.telegram.org"

// Telegram 通知器：推送开平仓、日报与紧急事件，并轮询 /status /stop /start 命令。
type Telegram struct {
	BotToken   string
	ChatID     string
	APIBase    string
	Client     *http.Client
	RetryDelay time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken:   botToken,
		ChatID:     chatID,
		APIBase:    defaultAPIBase,
		Client:     &http.Client{Timeout: 15 * time.Second},
		RetryDelay: time.Second,
	}
}

func (t *Telegram) endpoint(method string) string {
	base := strings.TrimRight(t.APIBase, "/")
	if base == "" {
		base = defaultAPIBase
	}
	return fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method)
}

// SendText 发送文本消息（带最多 3 次重试），ctx 取消时立即返回。
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	payload := map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, _ := json.Marshal(payload)

	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * t.RetryDelay):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := t.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}

// Command 为一条来自授权聊天的斜杠命令。
type Command struct {
	UpdateID int64
	Name     string // 不含斜杠，如 "status"
	Args     []string
}

// CommandHandler returns the reply text; an empty reply sends nothing.
type CommandHandler func(ctx context.Context, cmd Command) string

// Updates fetches pending updates after offset and returns the commands sent
// from ChatID plus the next offset to acknowledge.
func (t *Telegram) Updates(ctx context.Context, offset int64, wait time.Duration) ([]Command, int64, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(offset, 10))
	q.Set("timeout", strconv.Itoa(int(wait.Seconds())))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, offset, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, offset, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, offset, err
	}
	if resp.StatusCode/100 != 2 || !gjson.GetBytes(raw, "ok").Bool() {
		return nil, offset, fmt.Errorf("telegram getUpdates status=%d", resp.StatusCode)
	}
	next := offset
	var cmds []Command
	gjson.GetBytes(raw, "result").ForEach(func(_, upd gjson.Result) bool {
		id := upd.Get("update_id").Int()
		if id >= next {
			next = id + 1
		}
		msg := upd.Get("message")
		if msg.Get("chat.id").String() != t.ChatID {
			return true
		}
		if cmd, ok := parseCommand(msg.Get("text").String()); ok {
			cmd.UpdateID = id
			cmds = append(cmds, cmd)
		}
		return true
	})
	return cmds, next, nil
}

// Poll polls for commands every interval until ctx is done, replying with whatever
// the handler returns.
func (t *Telegram) Poll(ctx context.Context, interval time.Duration, handle CommandHandler) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	var offset int64
	for {
		cmds, next, err := t.Updates(ctx, offset, 0)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logger.Warnf("telegram: poll failed: %v", err)
		}
		offset = next
		for _, cmd := range cmds {
			reply := handle(ctx, cmd)
			if reply == "" {
				continue
			}
			if err := t.SendText(ctx, reply); err != nil {
				logger.Warnf("telegram: reply to /%s failed: %v", cmd.Name, err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// parseCommand accepts "/name arg..." and "/name@botname arg...".
func parseCommand(text string) (Command, bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(name), Args: fields[1:]}, true
}
