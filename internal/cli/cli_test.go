package cli

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ghaggin/courseweb/internal/apitest"
	"github.com/ghaggin/courseweb/internal/config"
	"github.com/ghaggin/courseweb/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func setup(t *testing.T) *apitest.Server {
	t.Helper()

	upstream := apitest.New(t)
	upstream.AddUser("Ada", "ada@example.com", "secret1", model.RoleStudent)
	upstream.AddUser("Root", "root@example.com", "secret1", model.RoleAdmin)

	t.Setenv("COURSEWEB_API_BASE_URL", upstream.URL)
	t.Setenv("COURSEWEB_CREDENTIALS_PATH", filepath.Join(t.TempDir(), "credentials.json"))
	t.Setenv("COURSEWEB_LOG_LEVEL", "error")
	return upstream
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(out)

	err := cmd.Execute()
	return out.String(), err
}

func TestStudentFlow(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	upstream := setup(t)
	course := upstream.AddCourse("CS101", "Intro to Go", 1)
	id := strconv.Itoa(course.ID)

	_, err := run(t, "", "whoami")
	assert.ErrorIs(err, errNotLoggedIn)

	_, err = run(t, "", "login", "--email", "a@b.com", "--password", "x")
	assert.EqualError(err, "Invalid email or password")

	_, err = run(t, "", "whoami")
	assert.ErrorIs(err, errNotLoggedIn)

	out, err := run(t, "secret1\n", "login", "--email", "ada@example.com")
	require.NoError(err)
	assert.Contains(out, "Signed in as Ada (student)")

	out, err = run(t, "", "whoami")
	require.NoError(err)
	assert.Contains(out, "Ada <ada@example.com> student")

	out, err = run(t, "", "enroll", id)
	require.NoError(err)
	assert.Contains(out, "Enrolled successfully!")

	_, err = run(t, "", "enroll", id)
	assert.EqualError(err, "Already enrolled in this course")

	out, err = run(t, "", "courses")
	require.NoError(err)
	assert.Contains(out, "CS101")
	assert.Contains(out, "full")

	out, err = run(t, "", "drop", id)
	require.NoError(err)
	assert.Contains(out, "Course dropped")

	_, err = run(t, "", "logout")
	require.NoError(err)

	_, err = run(t, "", "enroll", id)
	assert.ErrorIs(err, errNotLoggedIn)
}

func TestEnroll_adminNotPermitted(t *testing.T) {
	upstream := setup(t)
	course := upstream.AddCourse("CS101", "Intro to Go", 1)

	_, err := run(t, "", "login", "--email", "root@example.com", "--password", "secret1")
	require.NoError(t, err)

	_, err = run(t, "", "enroll", strconv.Itoa(course.ID))
	assert.ErrorIs(t, err, errNotPermitted)
	assert.Empty(t, upstream.Enrollments())
}

func TestCourses_empty(t *testing.T) {
	setup(t)

	out, err := run(t, "", "courses")
	require.NoError(t, err)
	assert.Contains(t, out, "No active courses available at the moment.")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "courseweb dev")
}

func TestServeOptions(t *testing.T) {
	assert.NoError(t, fx.ValidateApp(serveOptions(config.Path(filepath.Join(t.TempDir(), "none.yaml")))))
}
