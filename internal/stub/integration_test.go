package stub

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlims/limsclient/internal/api"
	"github.com/openlims/limsclient/internal/appstate"
	"github.com/openlims/limsclient/internal/fixture"
)

func bootSession(t *testing.T, username string) *appstate.State {
	t.Helper()
	srv := httptest.NewServer(NewServer().Handler())
	t.Cleanup(srv.Close)

	uiFixture, err := fixture.UiResources()
	require.NoError(t, err)

	state := appstate.New(appstate.Config{
		Client:      api.New(srv.URL),
		ReportsRoot: "/reports/api/v1",
		Fixture:     uiFixture,
	})
	require.NoError(t, state.Start(context.Background(), username))
	return state
}

func TestSessionBootstrap_ComposesVirtualResources(t *testing.T) {
	state := bootSession(t, "admin")

	screeners, err := state.GetResource("screeners")
	require.NoError(t, err)
	base, err := state.GetResource("screensaveruser")
	require.NoError(t, err)

	// The virtual resource inherits the served schema and keeps its
	// fixture-declared search narrowing.
	require.NotNil(t, screeners.Schema)
	assert.Equal(t, len(base.Schema.Fields), len(screeners.Schema.Fields))
	assert.Contains(t, screeners.Schema.Fields, "username")
	require.NotNil(t, screeners.Options)
	assert.Equal(t, "False", screeners.Options.Search["screeningroomuser__isnull"])
}

func TestSessionBootstrap_ResolvesVocabularyTitles(t *testing.T) {
	state := bootSession(t, "admin")

	assert.Equal(t, "Small Molecule", state.GetVocabularyTitle("screen.type", "small_molecule"))

	// Retired terms resolve for stored values but are not offered.
	assert.Equal(t, "DMSO", state.GetVocabularyTitle("well.type", "dmso"))
	for _, opt := range state.GetVocabularySelectOptions("well.type") {
		assert.NotEqual(t, "dmso", opt.Val)
	}
}

func TestSessionBootstrap_UserPermissions(t *testing.T) {
	admin := bootSession(t, "admin")
	assert.True(t, admin.IsSuperuser())
	assert.True(t, admin.HasPermission("librarycopyplate", "write"))

	screener := bootSession(t, "jsmith")
	assert.False(t, screener.IsSuperuser())
	assert.True(t, screener.HasPermission("screen", "read"))
	assert.False(t, screener.HasPermission("screensaveruser", "write"))
}

func TestSessionBootstrap_NoConfigurationWarnings(t *testing.T) {
	state := bootSession(t, "admin")

	// Every served select-type field carries choices or a vocabulary
	// scope, so a fresh session starts with an empty banner queue.
	assert.Empty(t, state.Messages())
}

func TestAddVocabularyTerm_CreatesAndRefetches(t *testing.T) {
	state := bootSession(t, "admin")
	ctx := context.Background()

	term, err := state.AddVocabularyTerm(ctx, "screen.type", "CRISPR Cas9", "new screen type")
	require.NoError(t, err)
	assert.Equal(t, "crispr_cas9", term.Key)
	assert.Equal(t, 3, term.Ordinal)

	// The cache was refetched: the new term resolves and is offered.
	assert.Equal(t, "CRISPR Cas9", state.GetVocabularyTitle("screen.type", "crispr_cas9"))
	var offered bool
	for _, opt := range state.GetVocabularySelectOptions("screen.type") {
		if opt.Val == "crispr_cas9" {
			offered = true
		}
	}
	assert.True(t, offered)
}

func TestAddVocabularyTerm_RejectsDuplicateKey(t *testing.T) {
	state := bootSession(t, "admin")

	// "Small-Molecule" collapses to the existing key small_molecule.
	_, err := state.AddVocabularyTerm(context.Background(), "screen.type", "Small-Molecule", "dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")

	// Nothing was created: the scope still holds its original terms.
	terms, lookupErr := state.GetVocabulary("screen.type")
	require.NoError(t, lookupErr)
	assert.Len(t, terms, 2)
}

func TestSessionBootstrap_EntityFetchThroughRegistry(t *testing.T) {
	state := bootSession(t, "admin")

	entity, res, err := state.GetModel(context.Background(), "small_molecule_screens", "1")
	require.NoError(t, err)
	assert.Equal(t, "screen", res.APIResource)
	assert.Equal(t, "Kinase inhibitor screen", entity["title"])
}
