// Package checkout handles the payment method buttons on the payment page.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// Data attributes carried by a payment method button.
const (
	AttrReferenceDoctype = "data-reference_doctype"
	AttrReferenceName    = "data-reference_name"
	AttrGateway          = "data-payment-gateway"
)

// RedirectingLabel replaces the button text while the checkout URL is fetched.
const RedirectingLabel = "Redirecting..."

// Button is one payment method on the page. Disabled and Label reflect what
// the customer sees.
type Button struct {
	ReferenceDoctype string `validate:"required"`
	ReferenceName    string `validate:"required"`
	Gateway          string `validate:"required"`
	Disabled         bool
	Label            string
}

// ButtonFromAttrs builds a Button from the element's data attributes.
func ButtonFromAttrs(attrs map[string]string) *Button {
	return &Button{
		ReferenceDoctype: strings.TrimSpace(attrs[AttrReferenceDoctype]),
		ReferenceName:    strings.TrimSpace(attrs[AttrReferenceName]),
		Gateway:          strings.TrimSpace(attrs[AttrGateway]),
		Label:            attrs["label"],
	}
}

var validate = validator.New()

// Validate reports the first missing attribute, if any.
func (b *Button) Validate() error {
	if b == nil {
		return errors.New("checkout: nil button")
	}
	if err := validate.Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("checkout: %s is %s", verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

func (b *Button) args() map[string]string {
	return map[string]string{
		"reference_doctype": b.ReferenceDoctype,
		"reference_name":    b.ReferenceName,
		"gateway":           b.Gateway,
	}
}
