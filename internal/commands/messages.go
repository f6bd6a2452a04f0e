package commands

import (
	"errors"

	"github.com/kamas-trade/kamasbot/internal/ledger"
	"github.com/kamas-trade/kamasbot/internal/platform"
	"github.com/kamas-trade/kamasbot/internal/stock"
)

const (
	msgAdminOnly       = "Réservé aux administrateurs."
	msgGuildOnly       = "Action impossible ici."
	msgNotAdminTarget  = "Le membre sélectionné n'a pas le rôle ADMIN."
	msgForbidden       = "❌ Je n'ai pas la permission d'écrire dans ce salon."
	msgGenericFailure  = "❌ Une erreur est survenue. Réessaie plus tard."
	msgInvalidLedger   = "❌ Saisie invalide : vérifie le montant (en millions) et le taux (€/M)."
	msgInvalidKamas    = "❌ Montant invalide : indique un nombre entier de kamas (ex : 12 500 000)."
	msgGlobalIsDerived = "❌ Le stock global est calculé automatiquement (somme des stocks admins). Utilisez les commandes *_admin."
)

// failureMessage maps a service error onto the fixed user-facing text.
// notFound is the message used when the target channel is missing.
func failureMessage(err error, notFound string) string {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return msgInvalidLedger
	case errors.Is(err, stock.ErrInvalidAmount), errors.Is(err, errInvalidKamas):
		return msgInvalidKamas
	case errors.Is(err, platform.ErrChannelNotFound):
		return notFound
	case errors.Is(err, platform.ErrForbidden):
		return msgForbidden
	}
	return msgGenericFailure
}
