package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/mapop/task"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesSingleAgentTask(t *testing.T) {
	path := writeFixture(t, `{
		"agent": "a1",
		"agents": ["a1"],
		"variables": [{"code": 0, "name": "loc", "domain": [0, 1], "writable_by": "a1"}],
		"actions": [
			{"name": "pickup", "agent": "a1",
			 "preconditions": [{"var": 0, "value": 0}],
			 "effects": [{"var": 0, "value": 1}]}
		],
		"initial_state": {"0": 0},
		"goals": [{"var": 0, "value": 1}]
	}`)

	tk, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, task.AgentID("a1"), tk.Agent)
	require.Len(t, tk.Actions, 1)
	require.Equal(t, "pickup", tk.Actions[0].Name)
	require.Equal(t, task.Equal, tk.Actions[0].Preconditions[0].Kind)
	require.Equal(t, 0, tk.InitialState[0])
	require.Len(t, tk.Goals, 1)
}

func TestLoadParsesDistinctConditionKind(t *testing.T) {
	path := writeFixture(t, `{
		"agent": "a1",
		"variables": [{"code": 0, "name": "loc", "domain": [0, 1]}],
		"actions": [
			{"name": "act", "agent": "a1",
			 "preconditions": [{"var": 0, "value": 1, "kind": "distinct"}],
			 "effects": [{"var": 0, "value": 1}]}
		],
		"initial_state": {},
		"goals": [{"var": 0, "value": 1}]
	}`)

	tk, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, task.Distinct, tk.Actions[0].Preconditions[0].Kind)
}

func TestLoadRejectsActionWithNoEffects(t *testing.T) {
	path := writeFixture(t, `{
		"agent": "a1",
		"variables": [{"code": 0, "name": "loc", "domain": [0, 1]}],
		"actions": [{"name": "noop", "agent": "a1"}],
		"initial_state": {},
		"goals": []
	}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
