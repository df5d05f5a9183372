package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlims/limsclient/internal/menu"
)

func TestUiResources_Decodes(t *testing.T) {
	resources, err := UiResources()
	require.NoError(t, err)

	screeners := resources["screeners"]
	require.NotNil(t, screeners)
	assert.Equal(t, "screensaveruser", screeners.APIResource)
	assert.Equal(t, "/db/api/v1", screeners.URLRoot)
	require.NotNil(t, screeners.Options)
	assert.Equal(t, "False", screeners.Options.Search["screeningroomuser__isnull"])

	sml := resources["smallmoleculelibrary"]
	require.NotNil(t, sml)
	assert.Equal(t, 500, sml.Options.RPP)
	assert.Equal(t, []string{"-start_plate"}, sml.Options.Order)
}

func TestUiResources_VirtualResourcesNameRealAPIResources(t *testing.T) {
	resources, err := UiResources()
	require.NoError(t, err)

	for key, res := range resources {
		if res.APIResource == "" || res.APIResource == key {
			continue
		}
		base, ok := resources[res.APIResource]
		require.True(t, ok, "%s names unknown api_resource %s", key, res.APIResource)
		assert.Equal(t, base.Key, res.APIResource)
	}
}

func TestMenu_LeavesNameFixtureResources(t *testing.T) {
	resources, err := UiResources()
	require.NoError(t, err)

	var walk func(it *menu.Item)
	walk = func(it *menu.Item) {
		if it.IsLeaf() && it.Key != "home" {
			_, ok := resources[it.Key]
			assert.True(t, ok, "menu leaf %s has no fixture entry", it.Key)
		}
		for _, sub := range it.Submenus {
			walk(sub)
		}
	}
	walk(Menu())
}
