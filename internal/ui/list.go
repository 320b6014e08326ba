package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/musegen/internal/models"
)

var (
	_ list.Item = variantItem{}
	_ list.Item = sessionItem{}
)

// variantItem wraps [models.ModelVariant] to implement [list.Item].
type variantItem struct {
	variant models.ModelVariant
}

func (i variantItem) FilterValue() string { return i.variant.Name }
func (i variantItem) Title() string       { return i.variant.Name }
func (i variantItem) Description() string { return i.variant.Description }

// sessionItem wraps [models.TrainingSessionSummary] to implement [list.Item].
type sessionItem struct {
	session models.TrainingSessionSummary
}

func (i sessionItem) FilterValue() string { return i.session.SessionID }
func (i sessionItem) Title() string       { return i.session.SessionID }
func (i sessionItem) Description() string {
	completed := "no"
	if i.session.TrainingCompleted {
		completed = "yes"
	}
	desc := fmt.Sprintf("%d files • completed: %s", i.session.FileCount, completed)
	if !i.session.CreatedAt.IsZero() {
		desc = fmt.Sprintf("%s • %s", i.session.CreatedAt.Format("2006-01-02 15:04"), desc)
	}
	return desc
}

func variantItems(v models.ModelVariants) []list.Item {
	items := make([]list.Item, len(v.Variants))
	for i, variant := range v.Variants {
		items[i] = variantItem{variant: variant}
	}
	return items
}

func sessionItems(s models.TrainingSessions) []list.Item {
	items := make([]list.Item, len(s.Sessions))
	for i, session := range s.Sessions {
		items[i] = sessionItem{session: session}
	}
	return items
}
