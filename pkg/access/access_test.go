package access_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	admin "github.com/goliatone/go-admin"
	"github.com/goliatone/go-admin/introspect"
	"github.com/goliatone/go-admin/pkg/access"
)

const policyCSV = `p, role:editor, Team, view
p, role:editor, Division, view
p, role:admin, *, view
p, anonymous, League, view
g, alice, role:editor
g, root, role:admin
`

func writePolicy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(path, []byte(policyCSV), 0o644))
	return path
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    access.Mode
		wantErr bool
	}{
		{in: "", want: access.ModeEnforce},
		{in: "Shadow", want: access.ModeShadow},
		{in: " disabled ", want: access.ModeDisabled},
		{in: "audit", wantErr: true},
	}
	for _, tc := range cases {
		got, err := access.ParseMode(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestEnforceModeUsesPolicyFile(t *testing.T) {
	authz, err := access.New(writePolicy(t), access.ModeEnforce)
	require.NoError(t, err)

	cases := []struct {
		principal string
		model     admin.ModelID
		allowed   bool
	}{
		{principal: "alice", model: "Team", allowed: true},
		{principal: "alice", model: "Player", allowed: false},
		{principal: "root", model: "Player", allowed: true},
		{principal: "", model: "League", allowed: true},
		{principal: "", model: "Team", allowed: false},
		{principal: "mallory", model: "Team", allowed: false},
	}
	for _, tc := range cases {
		allowed, err := authz.CanAccess(tc.principal, tc.model)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, allowed, "%s on %s", tc.principal, tc.model)
	}
}

func TestShadowModeAllowsAndLogs(t *testing.T) {
	logger := &recordingLogger{}
	authz, err := access.New(writePolicy(t), access.ModeShadow, access.WithLogger(logger))
	require.NoError(t, err)

	allowed, err := authz.CanAccess("mallory", "Team")
	require.NoError(t, err)
	assert.True(t, allowed)
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "shadow deny view Team")

	allowed, enforced, err := authz.Authorize("mallory", "Team", access.ActionView)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.False(t, enforced)
}

func TestDisabledModeAllowsEverything(t *testing.T) {
	authz, err := access.New("", access.ModeDisabled)
	require.NoError(t, err)

	allowed, enforced, err := authz.Authorize("mallory", "Team", access.ActionView)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.False(t, enforced)
}

func TestGrantAndAssign(t *testing.T) {
	authz, err := access.New("", access.ModeEnforce)
	require.NoError(t, err)
	require.NoError(t, authz.Grant("role:scout", "Player", "Team"))
	require.NoError(t, authz.Assign("bob", "role:scout"))

	allowed, err := authz.CanAccess("bob", "Player")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = authz.CanAccess("bob", "Division")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.conf")
	require.NoError(t, os.WriteFile(modelPath, []byte(access.DefaultModel), 0o644))

	authz, err := access.NewFromFiles(modelPath, writePolicy(t), access.ModeEnforce)
	require.NoError(t, err)
	allowed, err := authz.CanAccess("alice", "Division")
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = access.New("", access.Mode("audit"))
	assert.Error(t, err)
}

func TestNavigationHidesDeniedModels(t *testing.T) {
	authz, err := access.New(writePolicy(t), access.ModeEnforce)
	require.NoError(t, err)

	catalog := introspect.NewCatalog(
		introspect.Model{Name: "Team", Fields: []introspect.Field{{Name: "name", Type: introspect.TypeString}}},
		introspect.Model{Name: "Player", Fields: []introspect.Field{{Name: "name", Type: introspect.TypeString}}},
		introspect.Model{Name: "Division", Fields: []introspect.Field{{Name: "name", Type: introspect.TypeString}}},
	)
	reg := admin.NewRegistry(catalog, admin.WithAuthorizer(authz))

	nav, err := reg.Navigation(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, nav.Contains("Team"))
	assert.True(t, nav.Contains("Division"))
	assert.False(t, nav.Contains("Player"))

	nav, err = reg.Navigation(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, nav.Entries(), 3)
}
