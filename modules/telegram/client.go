package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/legendx/enhancebot/common"
	"github.com/legendx/enhancebot/common/model"
)

// ChatAPI is the narrow capability surface the orchestrator consumes from the
// messaging platform. Everything behind it may fail; nothing behind it is
// retried here.
type ChatAPI interface {
	GetMemberStatus(ctx context.Context, channel string, userID int64) (string, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	SendText(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (model.MessageRef, error)
	SendPhoto(chatID int64, data []byte, caption string) error
	EditText(ref model.MessageRef, text string) error
	DeleteMessage(ref model.MessageRef) error
	AnswerCallback(callbackID string) error
}

// apiClient implements ChatAPI over the Bot API. File payloads are fetched
// through the shared HttpClient so downloads honor context deadlines.
type apiClient struct {
	api        *tgbotapi.BotAPI
	httpClient common.HttpClient
}

// NewChatAPI wraps an authorized bot connection.
func NewChatAPI(api *tgbotapi.BotAPI, httpClient common.HttpClient) ChatAPI {
	return &apiClient{api: api, httpClient: httpClient}
}

func (c *apiClient) GetMemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("get chat member: %w", err)
	}
	return member.Status, nil
}

func (c *apiClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve file url: %v", model.ErrDownload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDownload, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %v", model.ErrDownload,
			&common.HTTPError{StatusCode: resp.StatusCode, Body: body})
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDownload, err)
	}
	return data, nil
}

func (c *apiClient) SendText(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) (model.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("send text: %w", err)
	}
	return model.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (c *apiClient) SendPhoto(chatID int64, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "enhanced.jpg", Bytes: data})
	photo.Caption = caption
	if _, err := c.api.Send(photo); err != nil {
		return fmt.Errorf("%w: %v", model.ErrDelivery, err)
	}
	return nil
}

func (c *apiClient) EditText(ref model.MessageRef, text string) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if _, err := c.api.Send(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (c *apiClient) DeleteMessage(ref model.MessageRef) error {
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *apiClient) AnswerCallback(callbackID string) error {
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
