package chat

import (
	"net/http"

	"github.com/taskchat/taskchat/internal/httputil"
	"github.com/taskchat/taskchat/internal/logic/chat"
	"github.com/taskchat/taskchat/internal/svc"
	"github.com/taskchat/taskchat/internal/types"
)

// SendMessageHandler handles POST /api/{userId}/chat.
func SendMessageHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "invalid request body")
			return
		}

		l := chat.NewSendMessageLogic(r.Context(), svcCtx)
		resp, err := l.SendMessage(&req)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.OkJSON(w, resp)
	}
}
