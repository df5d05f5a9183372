package stub

import (
	"github.com/openlims/limsclient/internal/api"
	"github.com/openlims/limsclient/internal/schema"
	"github.com/openlims/limsclient/internal/vocab"
)

func minPtr(i int) *float64 { f := float64(i); return &f }

// SeedResources returns the server-side resource descriptors the stub
// serves, schemas included.
func SeedResources() []*schema.UiResource {
	return []*schema.UiResource{
		{
			Key: "screensaveruser", Title: "Screensaver User",
			APIResource: "screensaveruser", URLRoot: "/db/api/v1",
			IDAttribute: []string{"screensaver_user_id"},
			Ordinal:     1,
			Schema: &schema.Schema{Fields: map[string]*schema.Field{
				"screensaver_user_id": {
					Key: "screensaver_user_id", Title: "User ID",
					DataType: schema.TypeInteger, Ordinal: 1,
					Visibility: []string{"l", "d"},
				},
				"username": {
					Key: "username", Title: "Username",
					DataType: schema.TypeString, Ordinal: 2,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c"},
					Required:    true,
				},
				"name": {
					Key: "name", Title: "Name",
					DataType: schema.TypeString, Ordinal: 3,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c", "u"},
					Required:    true,
				},
				"email": {
					Key: "email", Title: "Email",
					DataType: schema.TypeString, Ordinal: 4,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c", "u"},
					Regex:       `^[^@\s]+@[^@\s]+$`,
				},
				"is_superuser": {
					Key: "is_superuser", Title: "Superuser",
					DataType: schema.TypeBoolean, Ordinal: 5,
					Visibility: []string{"d"},
				},
				"permissions": {
					Key: "permissions", Title: "Permissions",
					DataType: schema.TypeList, Ordinal: 6,
					Visibility: []string{"d"},
				},
				"usergroups": {
					Key: "usergroups", Title: "User Groups",
					DataType: schema.TypeList, EditType: schema.EditMultiselect,
					VocabularyScope: "usergroup.name",
					Ordinal:         7, Visibility: []string{"d", "e"},
					Editability: []string{"c", "u"},
				},
			}},
		},
		{
			Key: "user", Title: "User",
			APIResource: "user", URLRoot: "/reports/api/v1",
			IDAttribute: []string{"username"},
			Ordinal:     7,
			Schema: &schema.Schema{Fields: map[string]*schema.Field{
				"username": {
					Key: "username", Title: "Username",
					DataType: schema.TypeString, Ordinal: 1,
					Visibility: []string{"l", "d"},
				},
				"name": {
					Key: "name", Title: "Name",
					DataType: schema.TypeString, Ordinal: 2,
					Visibility: []string{"l", "d"},
				},
				"is_superuser": {
					Key: "is_superuser", Title: "Superuser",
					DataType: schema.TypeBoolean, Ordinal: 3,
					Visibility: []string{"d"},
				},
				"all_permissions": {
					Key: "all_permissions", Title: "Permissions",
					DataType: schema.TypeList, Ordinal: 4,
					Visibility: []string{"d"},
				},
			}},
		},
		{
			Key: "usergroup", Title: "User Group",
			APIResource: "usergroup", URLRoot: "/reports/api/v1",
			IDAttribute: []string{"name"},
			Ordinal:     2,
			Schema: &schema.Schema{Fields: map[string]*schema.Field{
				"name": {
					Key: "name", Title: "Name",
					DataType: schema.TypeString, Ordinal: 1,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c"},
					Required:    true,
				},
				"permissions": {
					Key: "permissions", Title: "Permissions",
					DataType: schema.TypeList, EditType: schema.EditMultiselect,
					Choices: []string{
						"permission/resource/screen/read",
						"permission/resource/screen/write",
						"permission/resource/library/read",
						"permission/resource/library/write",
						"permission/resource/screensaveruser/read",
						"permission/resource/screensaveruser/write",
					},
					Ordinal: 2, Visibility: []string{"d", "e"},
					Editability: []string{"c", "u"},
				},
			}},
		},
		{
			Key: "vocabularies", Title: "Vocabularies",
			APIResource: "vocabularies", URLRoot: "/reports/api/v1",
			IDAttribute: []string{"scope", "key"},
			Ordinal:     3,
			Schema: &schema.Schema{Fields: map[string]*schema.Field{
				"scope": {
					Key: "scope", Title: "Scope",
					DataType: schema.TypeString, Ordinal: 1,
					Visibility:  []string{"l", "d"},
					Editability: []string{"c"}, Required: true,
				},
				"key": {
					Key: "key", Title: "Key",
					DataType: schema.TypeString, Ordinal: 2,
					Visibility:  []string{"l", "d"},
					Editability: []string{"c"}, Required: true,
				},
				"title": {
					Key: "title", Title: "Title",
					DataType: schema.TypeString, Ordinal: 3,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c", "u"}, Required: true,
				},
				"ordinal": {
					Key: "ordinal", Title: "Ordinal",
					DataType: schema.TypeInteger, Ordinal: 4,
					Visibility:  []string{"d"},
					Editability: []string{"c", "u"},
				},
			}},
		},
		{
			Key: "screen", Title: "Screen",
			APIResource: "screen", URLRoot: "/db/api/v1",
			IDAttribute: []string{"facility_id"},
			Ordinal:     4,
			Schema: &schema.Schema{Fields: map[string]*schema.Field{
				"facility_id": {
					Key: "facility_id", Title: "Facility ID",
					DataType: schema.TypeString, Ordinal: 1,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c"},
					Required:    true,
					Regex:       `^[0-9]+$`,
				},
				"title": {
					Key: "title", Title: "Title",
					DataType: schema.TypeString, Ordinal: 2,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c", "u"},
					Required:    true,
				},
				"screen_type": {
					Key: "screen_type", Title: "Screen Type",
					DataType: schema.TypeString, EditType: schema.EditSelect,
					VocabularyScope: "screen.type",
					Choices:         []string{"small_molecule", "rnai"},
					Ordinal:         3, Visibility: []string{"l", "d", "e"},
					Editability: []string{"c"},
					Required:    true,
				},
				"project_phase": {
					Key: "project_phase", Title: "Project Phase",
					DataType: schema.TypeString, EditType: schema.EditSelect,
					VocabularyScope: "screen.project_phase",
					Choices:         []string{"primary_screen", "follow_up_screen", "annotation"},
					Ordinal:         4, Visibility: []string{"l", "d", "e"},
					Editability: []string{"c", "u"},
				},
				"total_plated_lab_cherry_picks": {
					Key: "total_plated_lab_cherry_picks", Title: "Plated Cherry Picks",
					DataType: schema.TypeInteger, Ordinal: 5,
					Visibility: []string{"d", "e"},
					Min:        minPtr(0),
				},
			}},
		},
		{
			Key: "library", Title: "Library",
			APIResource: "library", URLRoot: "/db/api/v1",
			IDAttribute: []string{"short_name"},
			Ordinal:     5,
			Schema: &schema.Schema{Fields: map[string]*schema.Field{
				"short_name": {
					Key: "short_name", Title: "Short Name",
					DataType: schema.TypeString, Ordinal: 1,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c"},
					Required:    true,
				},
				"library_name": {
					Key: "library_name", Title: "Library Name",
					DataType: schema.TypeString, Ordinal: 2,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c", "u"},
					Required:    true,
				},
				"screen_type": {
					Key: "screen_type", Title: "Screen Type",
					DataType: schema.TypeString, EditType: schema.EditSelect,
					VocabularyScope: "screen.type",
					Choices:         []string{"small_molecule", "rnai"},
					Ordinal:         3, Visibility: []string{"l", "d", "e"},
					Editability: []string{"c"},
				},
				"start_plate": {
					Key: "start_plate", Title: "Start Plate",
					DataType: schema.TypeInteger, Ordinal: 4,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c"},
					Range:       []float64{0, 100000},
				},
				"end_plate": {
					Key: "end_plate", Title: "End Plate",
					DataType: schema.TypeInteger, Ordinal: 5,
					Visibility:  []string{"l", "d", "e"},
					Editability: []string{"c"},
					Range:       []float64{0, 100000},
				},
			}},
		},
		{
			Key: "well", Title: "Well",
			APIResource: "well", URLRoot: "/db/api/v1",
			IDAttribute: []string{"well_id"},
			Ordinal:     6,
			Schema: &schema.Schema{Fields: map[string]*schema.Field{
				"well_id": {
					Key: "well_id", Title: "Well ID",
					DataType: schema.TypeString, Ordinal: 1,
					Visibility: []string{"l", "d"},
				},
				"plate_number": {
					Key: "plate_number", Title: "Plate",
					DataType: schema.TypeInteger, Ordinal: 2,
					Visibility: []string{"l", "d"},
				},
				"well_name": {
					Key: "well_name", Title: "Well",
					DataType: schema.TypeString, Ordinal: 3,
					Visibility: []string{"l", "d"},
				},
				"library_well_type": {
					Key: "library_well_type", Title: "Well Type",
					DataType: schema.TypeString, Ordinal: 4,
					VocabularyScope: "well.type",
					Visibility:      []string{"l", "d"},
				},
			}},
		},
	}
}

// SeedVocabularies returns the stub's controlled vocabulary terms.
func SeedVocabularies() []*vocab.Term {
	return []*vocab.Term{
		{Scope: "screen.type", Key: "small_molecule", Title: "Small Molecule", Ordinal: 1},
		{Scope: "screen.type", Key: "rnai", Title: "RNAi", Ordinal: 2},
		{Scope: "screen.project_phase", Key: "primary_screen", Title: "Primary Screen", Ordinal: 1},
		{Scope: "screen.project_phase", Key: "follow_up_screen", Title: "Follow Up Screen", Ordinal: 2},
		{Scope: "screen.project_phase", Key: "annotation", Title: "Annotation", Ordinal: 3},
		{Scope: "well.type", Key: "experimental", Title: "Experimental", Ordinal: 1},
		{Scope: "well.type", Key: "empty", Title: "Empty", Ordinal: 2},
		{Scope: "well.type", Key: "dmso", Title: "DMSO", Ordinal: 3, IsRetired: true},
		{Scope: "usergroup.name", Key: "screeners", Title: "Screeners", Ordinal: 1},
		{Scope: "usergroup.name", Key: "staff", Title: "Staff", Ordinal: 2},
	}
}

// SeedEntities loads demo rows into the store.
func SeedEntities(store *Store) {
	store.Insert("screensaveruser", api.Entity{
		"screensaver_user_id": 1, "username": "admin", "name": "Admin User",
		"email": "admin@example.org", "is_superuser": true,
	})
	store.Insert("screensaveruser", api.Entity{
		"screensaver_user_id": 2, "username": "jsmith", "name": "Jane Smith",
		"email": "jsmith@example.org",
		"permissions": []string{
			"permission/resource/screen/read",
			"permission/resource/library/read",
		},
	})
	store.Insert("user", api.Entity{
		"username": "admin", "name": "Admin User",
		"email": "admin@example.org", "is_superuser": true, "is_staff": true,
	})
	store.Insert("user", api.Entity{
		"username": "jsmith", "name": "Jane Smith",
		"email": "jsmith@example.org",
		"all_permissions": []string{
			"permission/resource/screen/read",
			"permission/resource/library/read",
		},
	})
	store.Insert("usergroup", api.Entity{
		"name": "screeners",
		"permissions": []string{
			"permission/resource/screen/read",
			"permission/resource/library/read",
		},
	})
	store.Insert("screen", api.Entity{
		"facility_id": "1", "title": "Kinase inhibitor screen",
		"screen_type": "small_molecule", "project_phase": "primary_screen",
	})
	store.Insert("screen", api.Entity{
		"facility_id": "2", "title": "Genome-wide siRNA screen",
		"screen_type": "rnai", "project_phase": "primary_screen",
	})
	store.Insert("screen", api.Entity{
		"facility_id": "3", "title": "Curated annotation study",
		"screen_type": "small_molecule", "project_phase": "annotation",
	})
	store.Insert("library", api.Entity{
		"short_name": "KIN1", "library_name": "Kinase Set 1",
		"screen_type": "small_molecule", "start_plate": 100, "end_plate": 150,
	})
	store.Insert("library", api.Entity{
		"short_name": "siGENOME", "library_name": "siGENOME Whole Genome",
		"screen_type": "rnai", "start_plate": 500, "end_plate": 900,
	})
	store.Insert("well", api.Entity{
		"well_id": "00100:A01", "plate_number": 100, "well_name": "A01",
		"library_well_type": "experimental",
	})
	store.Insert("well", api.Entity{
		"well_id": "00100:A02", "plate_number": 100, "well_name": "A02",
		"library_well_type": "empty",
	})
	for _, term := range SeedVocabularies() {
		store.Insert("vocabularies", api.Entity{
			"scope": term.Scope, "key": term.Key, "title": term.Title,
			"ordinal": term.Ordinal, "is_retired": term.IsRetired,
		})
	}
}
