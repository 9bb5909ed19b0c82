package template

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/ghaggin/courseweb/internal/model"
)

const (
	templateDir string = "tmpl"
)

//go:embed tmpl/*.html
var files embed.FS

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"isAdmin": func(u *model.User) bool {
		return u != nil && u.Role == model.RoleAdmin
	},
	"isStudent": func(u *model.User) bool {
		return u != nil && u.Role == model.RoleStudent
	},
}

type Data struct {
	PageTitle string
	User      *model.User

	FlashKind    string
	FlashMessage string
	Error        string

	Form        map[string]string
	Courses     []model.Course
	Enrollments []model.Enrollment
}

// Render executes tmpl inside base.html and writes it with status. Nothing is
// written if execution fails.
func Render(w http.ResponseWriter, status int, tmpl string, td *Data) error {
	t, err := template.New("base.html").Funcs(funcs).ParseFS(files,
		templateDir+"/"+"base.html",
		templateDir+"/"+tmpl,
	)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}

	err = t.Execute(buf, td)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
