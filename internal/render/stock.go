package render

import (
	"fmt"
	"time"

	"github.com/kamas-trade/kamasbot/internal/ledger"
)

const stockGlobalTitle = "💰✨ 𝗦𝗧𝗢𝗖𝗞𝗦 𝗞𝗔𝗠𝗔𝗦 ✨💰"

// Admin identifies the holder of a per-admin stock.
type Admin struct {
	ID        string
	Name      string
	AvatarURL string
}

// Kamas prints a raw kamas amount with space thousands separators.
func Kamas(amount int64) string {
	return ledger.FormatInt(amount, " ")
}

// StockGlobal renders the guild-wide stock, the sum over all admins.
func StockGlobal(amount int64, at time.Time, loc *time.Location) Document {
	color := ColorRed
	if amount > 0 {
		color = ColorGreen
	}
	return Document{
		Title: stockGlobalTitle,
		Description: fmt.Sprintf("📊 **Stock disponible :** %s kamas\n🕒 **Dernière mise à jour :** %s",
			Kamas(amount), Stamp(at, loc)),
		Color: color,
	}
}

// StockAdmin renders one admin's stock.
func StockAdmin(admin Admin, amount int64, at time.Time, loc *time.Location) Document {
	name := admin.Name
	if name == "" {
		name = "ID:" + admin.ID
	}
	return Document{
		Title: "👤 𝗦𝗧𝗢𝗖𝗞 — " + name,
		Description: fmt.Sprintf("📦 **Stock (transactions gérées par <@%s>) :** %s kamas\n🕒 **Dernière mise à jour :** %s",
			admin.ID, Kamas(amount), Stamp(at, loc)),
		Color:     ColorBlue,
		Thumbnail: admin.AvatarURL,
	}
}
