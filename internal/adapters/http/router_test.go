package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/introspect"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	catalog := introspect.NewCatalog(
		introspect.Model{Name: "Team", Fields: []introspect.Field{
			{Name: "name", Type: introspect.TypeString, MaxLength: 50},
			{Name: "founded", Type: introspect.TypeInteger, Nullable: true},
		}, Validations: []introspect.Validation{{Field: "name", Kind: introspect.ValidatePresence}}},
		introspect.Model{Name: "Player", Fields: []introspect.Field{
			{Name: "name", Type: introspect.TypeString},
		}},
		introspect.Model{Name: "Fan", Fields: []introspect.Field{
			{Name: "name", Type: introspect.TypeString},
		}},
	)
	deny := admin.AuthorizerFunc(func(principal string, model admin.ModelID) (bool, error) {
		return !(principal == "mallory" && model == "Player"), nil
	})
	reg := admin.NewRegistry(catalog, admin.WithAuthorizer(deny))
	reg.SetExcludedModels("Fan")
	require.NoError(t, reg.Configure("Team", func(m *admin.ModelBuilder) {
		m.LabelForNavigation("Clubs")
		m.Update(func(s *admin.SectionBuilder) {
			s.Field("founded", func(f *admin.FieldBuilder) { f.Hide() })
		})
	}))
	return NewRouter(reg)
}

func get(t *testing.T, h http.Handler, path, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set(PrincipalHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNavigationRoute(t *testing.T) {
	h := newTestRouter(t)

	rec := get(t, h, "/admin", "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Navigation admin.Navigation       `json:"navigation"`
		Items      []admin.NavigationItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	assert.Equal(t, "Clubs", body.Items[0].Label)
	assert.Equal(t, admin.ModelID("Player"), body.Items[1].Model)
	assert.False(t, body.Navigation.Contains("Fan"))

	rec = get(t, h, "/admin", "mallory")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Navigation.Contains("Player"))
}

func TestSectionRoutes(t *testing.T) {
	h := newTestRouter(t)

	cases := []struct {
		path    string
		section admin.SectionKind
		id      string
		fields  []string
	}{
		{"/admin/Team", admin.SectionList, "", []string{"name", "founded"}},
		{"/admin/Team/new", admin.SectionCreate, "", []string{"name", "founded"}},
		{"/admin/Team/export", admin.SectionExport, "", []string{"name", "founded"}},
		{"/admin/Team/7", admin.SectionShow, "7", []string{"name", "founded"}},
		{"/admin/Team/7/edit", admin.SectionUpdate, "7", []string{"founded"}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := get(t, h, tc.path, "alice")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var body SectionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.section, body.Section)
			assert.Equal(t, tc.id, body.ID)
			names := make([]string, len(body.Fields))
			for i, f := range body.Fields {
				names[i] = f.Name
			}
			assert.Equal(t, tc.fields, names)
		})
	}
}

func TestUpdateRouteHidesField(t *testing.T) {
	h := newTestRouter(t)

	rec := get(t, h, "/admin/Team/7/edit", "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	founded, ok := body.Field("founded")
	require.True(t, ok)
	assert.False(t, founded.Visible)
}

func TestExcludedAndUnknownModelsAreNotFound(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/admin/Fan", "/admin/Fan/new", "/admin/Fan/1/edit", "/admin/Ghost", "/admin/Fan/schema"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNotFound, rec.Code)
			var env ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, "model_not_found", env.Code)
			assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", env.TraceID)
			assert.Equal(t, path, env.Meta.Path)
			assert.Equal(t, http.MethodGet, env.Meta.Method)
		})
	}
}

func TestDeniedModelIsForbidden(t *testing.T) {
	h := newTestRouter(t)

	rec := get(t, h, "/admin/Player", "mallory")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(t, h, "/admin/Player", "alice")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSchemaRoute(t *testing.T) {
	h := newTestRouter(t)

	rec := get(t, h, "/admin/Team/schema", "alice")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths, _ := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/admin/Team")
	components, _ := doc["components"].(map[string]any)
	schemas, _ := components["schemas"].(map[string]any)
	team, _ := schemas["Team"].(map[string]any)
	assert.Equal(t, []any{"name"}, team["required"])
}

func TestTraceIDFromRequest(t *testing.T) {
	cases := [][2]string{
		{"", ""},
		{"bogus", ""},
		{"00-00000000000000000000000000000000-00f067aa0ba902b7-01", ""},
		{"00-4BF92F3577B34DA6A3CE929D0E0E4736-00f067aa0ba902b7-01", "4bf92f3577b34da6a3ce929d0e0e4736"},
		{"00-zzf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", ""},
	}
	for _, tc := range cases {
		header, want := tc[0], tc[1]
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("traceparent", header)
		}
		assert.Equal(t, want, traceIDFromRequest(req), header)
	}
}
