package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/taskchat/taskchat/internal/agent/ai"
	"github.com/taskchat/taskchat/internal/agent/orchestrator"
	"github.com/taskchat/taskchat/internal/logging"
	"github.com/taskchat/taskchat/internal/metrics"
	"github.com/taskchat/taskchat/internal/middleware"
	"github.com/taskchat/taskchat/internal/store"
	"github.com/taskchat/taskchat/internal/svc"
	"github.com/taskchat/taskchat/internal/types"
)

// SendMessageLogic handles one chat turn. It holds no state across
// calls; every invocation reconstructs context from the store.
type SendMessageLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSendMessageLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SendMessageLogic {
	return &SendMessageLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// SendMessage runs a full chat turn: resolve the conversation, persist
// the user message, run the agent loop, persist the assistant message,
// return the envelope.
//
// The path/token identity match is a hard precondition checked before
// any store access. A mismatch reads as NotFound so the caller learns
// nothing about other users' data.
func (l *SendMessageLogic) SendMessage(req *types.ChatRequest) (*types.ChatResponse, error) {
	caller := middleware.GetUserID(l.ctx)
	if caller == "" || caller != req.UserID {
		return nil, store.ErrNotFound
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, &store.ValidationError{Field: "message", Reason: "must not be empty"}
	}

	start := time.Now()

	conv, err := l.svcCtx.Conversations.GetOrCreate(l.ctx, caller, req.ConversationID)
	if err != nil {
		return nil, err
	}

	history, err := l.svcCtx.Conversations.LoadHistory(l.ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	if _, err := l.svcCtx.Conversations.AppendMessage(l.ctx, conv.ID, store.RoleUser, req.Message, ""); err != nil {
		return nil, err
	}

	transcript := buildTranscript(history, req.Message)

	result, err := l.svcCtx.Orchestrator.Run(l.ctx, caller, transcript)
	if err != nil {
		// The user message stays; the turn is reported failed and no
		// assistant message is committed.
		metrics.ChatTurns.WithLabelValues("error").Inc()
		return nil, err
	}

	summaries := result.ToolCalls
	if summaries == nil {
		summaries = []orchestrator.ToolCallSummary{}
	}
	summaryJSON := ""
	if data, err := json.Marshal(summaries); err == nil {
		summaryJSON = string(data)
	}

	if _, err := l.svcCtx.Conversations.AppendMessage(l.ctx, conv.ID, store.RoleAssistant, result.Response, summaryJSON); err != nil {
		metrics.ChatTurns.WithLabelValues("error").Inc()
		return nil, err
	}

	outcome := "success"
	if result.Fallback {
		outcome = "fallback"
	}
	metrics.ChatTurns.WithLabelValues(outcome).Inc()
	metrics.ChatTurnDuration.Observe(time.Since(start).Seconds())
	logging.Infof("[chat] turn done: user=%s conversation=%d tools=%d outcome=%s",
		caller, conv.ID, len(summaries), outcome)

	resp := &types.ChatResponse{
		ConversationID: conv.ID,
		Response:       result.Response,
		ToolCalls:      make([]types.ToolCallSummary, 0, len(summaries)),
	}
	for _, s := range summaries {
		resp.ToolCalls = append(resp.ToolCalls, types.ToolCallSummary{Name: s.Name, Status: s.Status})
	}
	return resp, nil
}

// buildTranscript converts persisted history into model messages and
// appends the new user message. Assistant tool-call summaries are not
// replayed as tool calls; past turns read as plain text.
func buildTranscript(history []store.Message, newMessage string) []ai.Message {
	transcript := make([]ai.Message, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case store.RoleUser, store.RoleAssistant:
			if m.Content == "" {
				continue
			}
			transcript = append(transcript, ai.Message{
				Role:    m.Role,
				Content: m.Content,
			})
		}
	}
	transcript = append(transcript, ai.Message{
		Role:    store.RoleUser,
		Content: newMessage,
	})
	return transcript
}
