// Package render builds email bodies and the small HTML pages served by the
// verification and password reset endpoints.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

const (
	VerifyEmail  = "verify_email"
	VerifyResult = "verify_result"
	ResetEmail   = "reset_email"
	ForgotForm   = "forgot_form"
	ResetForm    = "reset_form"
	ResetSuccess = "reset_success"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Renderer struct {
	tpl *template.Template
}

func New() (*Renderer, error) {
	tpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
