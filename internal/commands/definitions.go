package commands

import (
	"github.com/bwmarrin/discordgo"

	"github.com/kamas-trade/kamasbot/internal/stock"
)

func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:         "data",
			Description:  "Enregistrer une ligne Achat/Vente dans le journal.",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "type",
					Description: "Type d'opération",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Achat", Value: "achat"},
						{Name: "Vente", Value: "vente"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "montant_m",
					Description: "Montant en millions (décimal autorisé)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "taux",
					Description: "Taux en €/million (décimal, virgule ou point)",
					Required:    true,
				},
			},
		},
		{
			Name:         "data_ini",
			Description:  "Réinitialiser le bilan à zéro (sans relecture du journal).",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "data_rebuild",
			Description:  "Relecture complète du journal et reconstruction du bilan.",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "stock_publish_global",
			Description:  "Créer/relier le message fixe du stock global.",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "stock_publish_admin",
			Description:  "Créer/relier le message fixe du stock d'un admin.",
			DMPermission: boolPtr(false),
			Options:      []*discordgo.ApplicationCommandOption{adminOption()},
		},
		{
			Name:         "stock_set_admin",
			Description:  "Fixer le stock d'un admin (impacte le global).",
			DMPermission: boolPtr(false),
			Options:      []*discordgo.ApplicationCommandOption{adminOption(), amountOption("Montant en kamas", 0)},
		},
		{
			Name:         "stock_add_admin",
			Description:  "Augmenter le stock d'un admin (impacte le global).",
			DMPermission: boolPtr(false),
			Options:      []*discordgo.ApplicationCommandOption{adminOption(), amountOption("Montant en kamas à ajouter", 1)},
		},
		{
			Name:         "stock_remove_admin",
			Description:  "Diminuer le stock d'un admin (impacte le global).",
			DMPermission: boolPtr(false),
			Options:      []*discordgo.ApplicationCommandOption{adminOption(), amountOption("Montant en kamas à retirer", 1)},
		},
		{
			Name:         "stock_refresh",
			Description:  "Recalcule le stock global à partir des admins et réédite l'embed global.",
			DMPermission: boolPtr(false),
		},
		disabledGlobalSetter("stock_set"),
		disabledGlobalSetter("stock_add"),
		disabledGlobalSetter("stock_remove"),
		{
			Name:         "publish_tickets",
			Description:  "Publie le message avec les boutons de tickets",
			DMPermission: boolPtr(false),
		},
		{
			Name:         "envoyer",
			Description:  "Fait envoyer un message par le bot dans un salon choisi.",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Le texte à envoyer",
					Required:    true,
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "salon",
					Description:  "Salon cible (par défaut : le salon où vous exécutez la commande)",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
			},
		},
	}
}

func adminOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "admin",
		Description: "Administrateur cible",
		Required:    true,
	}
}

func amountOption(description string, min float64) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "montant",
		Description: description,
		Required:    true,
		MinValue:    floatPtr(min),
		MaxValue:    float64(stock.MaxBalance),
	}
}

func disabledGlobalSetter(name string) *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:         name,
		Description:  "(Désactivé) Le stock global est la somme des stocks admins.",
		DMPermission: boolPtr(false),
		Options:      []*discordgo.ApplicationCommandOption{amountOption("Montant en kamas", 0)},
	}
}
