package core

import (
	"context"
	"fmt"
	"strings"

	"pkt.systems/quarterdeck/schema"
)

func (s *service) SendChatMessage(ctx context.Context, target Target, args schema.SendChatArgs) (schema.SendChatResult, error) {
	t, err := s.resolveKind(target, schema.TabKindChat)
	if err != nil {
		return schema.SendChatResult{}, err
	}
	if strings.TrimSpace(args.Message) == "" {
		return schema.SendChatResult{}, fmt.Errorf("%w: empty message", schema.ErrInvalidArgument)
	}
	if s.assistant == nil {
		return schema.SendChatResult{}, fmt.Errorf("%w: no assistant configured", schema.ErrBackendUnavailable)
	}
	value, err := s.run(ctx, t, schema.MethodSendChatMessage, func(opCtx context.Context) (any, error) {
		s.applyIfLive(opCtx, t, func() {
			t.appendMessage(schema.ChatMessage{
				Role:      schema.ChatRoleUser,
				Assistant: args.Assistant,
				Text:      args.Message,
			}, s.cfg.TranscriptMaxMessages)
			t.chatPending = true
		})
		s.emitUpdated(t)
		response, err := s.assistant.Send(opCtx, args.Assistant, args.Message)
		if err != nil {
			s.applyIfLive(opCtx, t, func() { t.chatPending = false })
			s.emitUpdated(t)
			return nil, classifyBackendErr(err)
		}
		s.applyIfLive(opCtx, t, func() {
			t.chatPending = false
			t.appendMessage(schema.ChatMessage{
				Role:      schema.ChatRoleAssistant,
				Assistant: args.Assistant,
				Text:      response,
			}, s.cfg.TranscriptMaxMessages)
		})
		s.emitUpdated(t)
		return schema.SendChatResult{Response: response}, nil
	})
	if err != nil {
		return schema.SendChatResult{}, err
	}
	return value.(schema.SendChatResult), nil
}
