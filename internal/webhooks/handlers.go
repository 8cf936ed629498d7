package webhooks

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/paydesk/internal/common"
	"github.com/noah-isme/paydesk/internal/remoteaction"
	"github.com/noah-isme/paydesk/internal/ui"
)

// Payload is the body accepted by the webhook endpoint, as JSON or a form.
type Payload struct {
	Action  string `json:"action" validate:"required,oneof=create delete"`
	Confirm bool   `json:"confirm"`
}

// Reply is rendered for confirmed actions.
type Reply struct {
	Outcome  string          `json:"outcome"`
	Notices  []ui.Notice     `json:"notices"`
	Reloaded bool            `json:"reloaded"`
	Settings *StripeSettings `json:"settings,omitempty"`
}

var validate = validator.New()

// Handler exposes webhook actions over HTTP. The confirm field of the body
// stands in for the desk's confirmation dialog.
type Handler struct {
	Service *Service
	Fetcher DocFetcher
}

// Run serves POST /api/v1/stripe-settings/{name}/webhooks.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "webhooks not configured", nil)
		return
	}
	name := chi.URLParam(r, "name")
	payload, err := decodePayload(r)
	if err != nil {
		common.WriteError(w, common.BadRequest("invalid payload", err))
		return
	}
	if err := validate.Struct(payload); err != nil {
		common.WriteError(w, common.BadRequest("action must be create or delete", err))
		return
	}

	reloader := &SettingsReloader{Fetcher: h.Fetcher, Name: name}
	rec := &ui.Recorder{Answer: payload.Confirm}
	if h.Fetcher != nil {
		rec.ReloadFunc = reloader.Reload
	}

	outcome, err := h.Service.Run(r.Context(), Action(payload.Action), name, rec)
	if err != nil {
		if errors.Is(err, remoteaction.ErrInvalidRequest) {
			common.WriteError(w, common.BadRequest(err.Error(), err))
			return
		}
		common.WriteError(w, err)
		return
	}

	switch outcome {
	case remoteaction.Declined:
		prompt, _ := rec.Last(ui.EventConfirm)
		common.JSONError(w, http.StatusConflict, common.CodeConfirmRequired, prompt.Text, map[string]string{"confirm": "true"})
	case remoteaction.Succeeded:
		reply := Reply{Outcome: outcome.String(), Notices: rec.Notices()}
		if settings, ok := reloader.Current(); ok {
			reply.Reloaded = true
			reply.Settings = &settings
		}
		common.JSON(w, http.StatusOK, reply)
	default:
		common.JSON(w, http.StatusBadGateway, Reply{Outcome: outcome.String(), Notices: rec.Notices()})
	}
}

func decodePayload(r *http.Request) (Payload, error) {
	var p Payload
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&p)
		return p, err
	}
	if err := r.ParseForm(); err != nil {
		return p, err
	}
	p.Action = r.PostForm.Get("action")
	if raw := r.PostForm.Get("confirm"); raw != "" {
		confirm, err := strconv.ParseBool(raw)
		if err != nil {
			return p, err
		}
		p.Confirm = confirm
	}
	return p, nil
}
