package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/SAP-F-2025/school-portal-service/internal/models"
	"github.com/SAP-F-2025/school-portal-service/internal/validator"
)

type ChatConfig struct {
	GatewayURL   string
	GatewayKey   string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

type chatService struct {
	client    *openai.Client
	logger    *slog.Logger
	validator *validator.Validator
	config    ChatConfig
}

func NewChatService(logger *slog.Logger, validator *validator.Validator, config ChatConfig) ChatService {
	clientConfig := openai.DefaultConfig(config.GatewayKey)
	if config.GatewayURL != "" {
		clientConfig.BaseURL = config.GatewayURL
	}
	if config.HTTPClient != nil {
		clientConfig.HTTPClient = config.HTTPClient
	}

	return &chatService{
		client:    openai.NewClientWithConfig(clientConfig),
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

func (s *chatService) Stream(ctx context.Context, messages []models.ChatMessage, emit func(delta string) error) error {
	if errs := s.validator.ValidateChatHistory(messages); len(errs) > 0 {
		return errs
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, s.buildRequest(messages))
	if err != nil {
		return s.mapGatewayError(err)
	}
	defer stream.Close()

	var chunks int
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			s.logger.Debug("Chat stream completed", "chunks", chunks)
			return nil
		}
		if err != nil {
			s.logger.Warn("Chat stream interrupted", "chunks", chunks, "error", err)
			return s.mapGatewayError(err)
		}

		for _, choice := range resp.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			chunks++
			if err := emit(choice.Delta.Content); err != nil {
				return fmt.Errorf("failed to forward chat delta: %w", err)
			}
		}
	}
}

func (s *chatService) buildRequest(messages []models.ChatMessage) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if s.config.SystemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: s.config.SystemPrompt,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == models.ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return openai.ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: out,
		Stream:   true,
	}
}

// mapGatewayError turns gateway failures into user-facing service errors
func (s *chatService) mapGatewayError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusTooManyRequests:
		return wrapServiceError(ErrRateLimited, msgRateLimited, err)
	case http.StatusPaymentRequired:
		return wrapServiceError(ErrPaymentRequired, msgPaymentRequired, err)
	default:
		s.logger.Error("AI gateway error", "status", status, "error", err)
		return wrapServiceError(ErrUpstream, msgGatewayError, err)
	}
}
