package handlers

import (
	"fmt"
	"net/http"

	apierrors "github.com/pribylovaa/event-booking/internal/errors"
	"github.com/pribylovaa/event-booking/internal/locale"
	"github.com/pribylovaa/event-booking/internal/models"
)

// SetLocale сохраняет выбор языка в cookie. Значение вне allow-list — 400.
func (h *Handlers) SetLocale(w http.ResponseWriter, r *http.Request) {
	var in models.LocaleRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	l, err := locale.Parse(in.Locale)
	if err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("set locale %q: %w", in.Locale, err))
		return
	}

	locale.SetCookie(w, l, h.locale)
	writeJSON(w, http.StatusOK, models.LocaleResponse{Locale: l.String(), Dir: l.Dir()})
}
