// Package fixture holds the static UI configuration consumed once at
// startup: the UI-resource declarations merged with the server resource
// list, and the navigation menu tree.
package fixture

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/openlims/limsclient/internal/menu"
	"github.com/openlims/limsclient/internal/schema"
)

//go:embed ui_resources.json
var uiResourcesJSON []byte

// UiResources decodes the embedded UI-resource fixture.
func UiResources() (map[string]*schema.UiResource, error) {
	var resources map[string]*schema.UiResource
	if err := json.Unmarshal(uiResourcesJSON, &resources); err != nil {
		return nil, fmt.Errorf("decoding ui_resources fixture: %w", err)
	}
	return resources, nil
}

// Menu returns the navigation menu tree. Leaf keys match UI-resource keys
// so permission filtering can consult the composed registry.
func Menu() *menu.Item {
	return &menu.Item{
		Key: "home", Title: "Screensaver LIMS", Expanded: true,
		Submenus: []*menu.Item{
			{
				Key: "screensaveruser", Title: "Users",
				Submenus: []*menu.Item{
					{Key: "screeners", Title: "Screeners", Stack: []string{"screeners"}},
					{Key: "staff", Title: "Staff", Stack: []string{"staff"}},
				},
			},
			{
				Key: "screen", Title: "Screens",
				Submenus: []*menu.Item{
					{Key: "small_molecule_screens", Title: "Small Molecule Screens",
						Stack: []string{"small_molecule_screens"}},
					{Key: "rnai_screens", Title: "RNAi Screens",
						Stack: []string{"rnai_screens"}},
				},
			},
			{
				Key: "library", Title: "Libraries",
				Submenus: []*menu.Item{
					{Key: "smallmoleculelibrary", Title: "Small Molecule Libraries",
						Stack: []string{"smallmoleculelibrary"}},
					{Key: "rnalibrary", Title: "RNAi Libraries",
						Stack: []string{"rnalibrary"}},
				},
			},
			{Key: "about", Title: "About", Stack: []string{"about"}},
		},
	}
}
