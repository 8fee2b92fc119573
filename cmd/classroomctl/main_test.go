package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCmd runs classroomctl against a database file in dir.
func runCmd(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(dir, "classroom.db")+"?_pragma=foreign_keys(1)")
	t.Setenv("LOG_LEVEL", "error")

	a := &app{}
	defer a.close()

	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSeedAndCreateUsers(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, dir, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	out, err = runCmd(t, dir, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "AI configs created: 5")
	assert.Contains(t, out, "skipping task template")

	_, err = runCmd(t, dir, "create-user", "--username", "ms-lee", "--password", "secret1", "--name", "Ms Lee", "--role", "teacher")
	require.NoError(t, err)

	out, err = runCmd(t, dir, "seed", "--teacher", "ms-lee")
	require.NoError(t, err)
	assert.Contains(t, out, "AI configs created: 0")
	assert.Contains(t, out, "task template: Interactive narrative design")

	csvPath := filepath.Join(dir, "students.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("username,name,password\nann,Ann,secret1\nbo,Bo,secret2\nann,Ann Again,secret3\n"), 0o600))

	out, err = runCmd(t, dir, "create-students", "--file", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 created, 1 failed")
}

func TestSeedRejectsNonTeacherOwner(t *testing.T) {
	dir := t.TempDir()
	_, err := runCmd(t, dir, "migrate")
	require.NoError(t, err)
	_, err = runCmd(t, dir, "create-user", "--username", "kid", "--password", "secret1", "--name", "Kid")
	require.NoError(t, err)

	_, err = runCmd(t, dir, "seed", "--teacher", "kid")
	assert.ErrorContains(t, err, "is not a teacher")
}

func TestParseStudentsCSV(t *testing.T) {
	students, err := parseStudentsCSV(strings.NewReader("# class 3B\nann, Ann ,pw1\nbo,Bo,pw2\n"))
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Ann", students[0].Name)
	assert.Equal(t, "bo", students[1].Username)

	_, err = parseStudentsCSV(strings.NewReader("username,name,password\n"))
	assert.Error(t, err)

	_, err = parseStudentsCSV(strings.NewReader("ann,Ann\n"))
	assert.Error(t, err)
}

func TestEventsRejectsNonPositiveLimit(t *testing.T) {
	_, err := runCmd(t, t.TempDir(), "events", "--user", "u1", "--limit", "0")
	assert.ErrorContains(t, err, "--limit must be at least 1")
}
