package checkout

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/noah-isme/paydesk/internal/common"
	"github.com/noah-isme/paydesk/internal/remoteaction"
)

// Handler serves the payment page's redirect endpoint.
type Handler struct {
	Redirector *Redirector
}

// Redirect reads the button attributes from a form post and answers with a
// 303 to the gateway checkout, or the generic error when none is available.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	if h.Redirector == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout not configured", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		common.WriteError(w, common.BadRequest("invalid form", err))
		return
	}
	button := ButtonFromAttrs(map[string]string{
		AttrReferenceDoctype: r.PostForm.Get("reference_doctype"),
		AttrReferenceName:    r.PostForm.Get("reference_name"),
		AttrGateway:          r.PostForm.Get("payment-gateway"),
	})
	if err := button.Validate(); err != nil {
		common.WriteError(w, common.BadRequest(err.Error(), err))
		return
	}

	page := &redirectPage{}
	outcome, err := h.Redirector.Click(r.Context(), button, page)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if outcome == remoteaction.Succeeded && page.target != "" {
		http.Redirect(w, r, page.target, http.StatusSeeOther)
		return
	}
	common.JSONError(w, http.StatusBadGateway, common.CodeActionFailed, GenericError, nil)
}

// redirectPage collects what the redirector asked the page to do during one
// request.
type redirectPage struct {
	target  string
	message string
}

// Navigate accepts absolute http(s) targets only; anything else is shown as
// the generic error.
func (p *redirectPage) Navigate(_ context.Context, target string) {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		p.message = GenericError
		return
	}
	p.target = u.String()
}

func (p *redirectPage) Print(_ context.Context, msg string) {
	p.message = msg
}
