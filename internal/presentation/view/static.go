package view

import (
	"context"
	"fmt"
	"io"

	"github.com/penwyp/go-fullsnack/internal/core/model"
)

// staticView renders fixed text and owns no controllers
type staticView struct {
	name  string
	title string
	body  func() string
}

func (v *staticView) Name() string                { return v.name }
func (v *staticView) Mount(context.Context) error { return nil }
func (v *staticView) Unmount()                    {}

func (v *staticView) Render(w io.Writer) error {
	if err := writeTitle(w, v.title); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, v.body())
	return err
}

// NewHome creates the landing view
func NewHome(deps *Deps) View {
	return &staticView{name: "home", title: "FullSnack", body: func() string {
		if deps.Session != nil && deps.Session.IsAuthenticated() {
			return fmt.Sprintf("Welcome back, %s. Try: go %s, go %s", deps.Session.User(), model.PathFoodLog, model.PathDashboard)
		}
		return "Log what you eat and watch your totals. Try: login <email> or signup <email>"
	}}
}

// NewLogin creates the login view
func NewLogin(deps *Deps) View {
	return &staticView{name: "login", title: "Log in", body: func() string {
		return "login <email>    you will be asked for your password"
	}}
}

// NewSignup creates the signup view
func NewSignup(deps *Deps) View {
	return &staticView{name: "signup", title: "Sign up", body: func() string {
		return "signup <email> [first name] [last name]"
	}}
}
