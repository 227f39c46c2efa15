package models

import "strings"

// Template is a reusable participant list. Creating a bill from a template
// copies its participants.
type Template struct {
	ID           string
	OwnerID      string
	Name         string
	Participants []TemplateParticipant
	CreatedAt    int64
}

// TemplateParticipant is one entry of a template's participant list.
type TemplateParticipant struct {
	Name  string
	Color string
}

// NewTemplate validates a template. Participant colors default to the palette.
func NewTemplate(ownerID, name string, participants []TemplateParticipant) (*Template, error) {
	if ownerID == "" {
		return nil, invalid("template owner is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("template name is required")
	}

	tpl := &Template{OwnerID: ownerID, Name: name}
	for i, p := range participants {
		pp, err := NewParticipant(p.Name, p.Color)
		if err != nil {
			return nil, err
		}
		if pp.Color == "" {
			pp.Color = ColorFor(i)
		}
		tpl.Participants = append(tpl.Participants, TemplateParticipant{Name: pp.Name, Color: pp.Color})
	}
	return tpl, nil
}
