package notify

import (
	"fmt"

	"github.com/leadflowhq/leadflow/pkg/domain"
	"github.com/leadflowhq/leadflow/pkg/models"
)

// Composer builds notification messages from lead data. Composition is pure:
// the same lead always produces byte-identical output.
type Composer struct{}

// NewComposer creates a new message composer
func NewComposer() *Composer {
	return &Composer{}
}

// ComposeWelcome builds the immediate welcome message
func (c *Composer) ComposeWelcome(lead *models.Lead) (models.Message, error) {
	if err := requireFields(lead); err != nil {
		return models.Message{}, err
	}

	subject := fmt.Sprintf("Benvenuto, %s! Abbiamo ricevuto la tua richiesta", lead.ContactName)
	body := fmt.Sprintf(
		"Ciao %s,\n\n"+
			"grazie per la richiesta di audit per %s.\n"+
			"Obiettivo indicato: %s.\n\n"+
			"Un nostro consulente ti ricontattera entro 24 ore lavorative.\n\n"+
			"Il team LeadFlow",
		lead.ContactName, lead.Organization, lead.Goal,
	)

	return models.Message{Subject: subject, Body: body}, nil
}

// ComposeFollowUp builds the delayed follow-up message
func (c *Composer) ComposeFollowUp(lead *models.Lead) (models.Message, error) {
	if err := requireFields(lead); err != nil {
		return models.Message{}, err
	}

	subject := fmt.Sprintf("%s, hai ancora bisogno di una mano?", lead.ContactName)
	body := fmt.Sprintf(
		"Ciao %s,\n\n"+
			"ieri ci hai chiesto un audit per %s con l'obiettivo: %s.\n"+
			"Se non ti abbiamo ancora raggiunto, rispondi a questo messaggio\n"+
			"e fissiamo una chiamata.\n\n"+
			"Il team LeadFlow",
		lead.ContactName, lead.Organization, lead.Goal,
	)

	return models.Message{Subject: subject, Body: body}, nil
}

func requireFields(lead *models.Lead) error {
	if lead == nil {
		return domain.NewTemplateError("lead is required")
	}
	if lead.ContactName == "" {
		return domain.NewTemplateError("contact name is required for composition")
	}
	if lead.Organization == "" {
		return domain.NewTemplateError("organization is required for composition")
	}
	if lead.Goal == "" {
		return domain.NewTemplateError("goal is required for composition")
	}
	return nil
}
