// Package account serves the dashboard and the login, registration and
// logout pages.
//
// Handlers follow the factory pattern used across the http packages: a
// function takes the dependencies once at startup and returns the
// http.HandlerFunc the router calls on every request.
package account

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/biblioteca/internal/auth"
	"github.com/aanand-mishra/biblioteca/internal/http/flash"
	"github.com/aanand-mishra/biblioteca/internal/http/render"
	"github.com/aanand-mishra/biblioteca/internal/session"
	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/types"
	"github.com/aanand-mishra/biblioteca/internal/utils/response"
)

// Deps groups what the account handlers need.
type Deps struct {
	Auth     *auth.Service
	Sessions session.Store
	Cookies  session.Cookies
	Render   *render.Renderer
}

// Home handles GET /. It must sit behind the login gate, which redirects
// anonymous visitors to /login.
func Home(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := session.FromContext(r.Context())
		d.Render.HTML(w, http.StatusOK, "home.html", render.Page{
			Title:   "Home",
			User:    s.Username,
			Flashes: flash.Pop(w, r),
		})
	}
}

// LoginPage handles GET /login.
func LoginPage(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Render.HTML(w, http.StatusOK, "login.html", render.Page{
			Title:   "Log in",
			Flashes: flash.Pop(w, r),
		})
	}
}

// Login handles POST /login. Wrong password and unknown user produce the
// same message.
func Login(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := types.LoginForm{
			Username: strings.TrimSpace(r.PostFormValue("username")),
			Password: r.PostFormValue("password"),
		}

		user, err := d.Auth.Login(r.Context(), form)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Info("login rejected", slog.String("username", form.Username))
			flash.Add(w, r, flash.Danger, auth.ErrInvalidCredentials.Error())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err != nil {
			serverError(w, "login", err)
			return
		}

		s, err := d.Sessions.Create(user.ID, user.Username)
		if err != nil {
			serverError(w, "creating session", err)
			return
		}
		d.Cookies.Set(w, s)

		slog.Info("user logged in", slog.Int64("user_id", user.ID))
		flash.Add(w, r, flash.Success, "login successful")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// RegisterPage handles GET /register.
func RegisterPage(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Render.HTML(w, http.StatusOK, "register.html", render.Page{
			Title:   "Register",
			Flashes: flash.Pop(w, r),
		})
	}
}

// Register handles POST /register. On success the visitor is sent to the
// login page; the account is not logged in automatically.
func Register(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := types.RegisterForm{
			Username: strings.TrimSpace(r.PostFormValue("username")),
			Surname:  strings.TrimSpace(r.PostFormValue("surname")),
			Password: r.PostFormValue("password"),
			Email:    strings.TrimSpace(r.PostFormValue("email")),
		}

		id, err := d.Auth.Register(r.Context(), form)

		var verrs validator.ValidationErrors
		switch {
		case err == nil:
			slog.Info("user registered", slog.Int64("id", id))
			flash.Add(w, r, flash.Success, "user registered")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case errors.As(err, &verrs):
			flash.Add(w, r, flash.Danger, response.ValidationMessage(verrs))
			http.Redirect(w, r, "/register", http.StatusSeeOther)
		case errors.Is(err, storage.ErrUserExists):
			flash.Add(w, r, flash.Danger, storage.ErrUserExists.Error())
			http.Redirect(w, r, "/register", http.StatusSeeOther)
		default:
			serverError(w, "register", err)
		}
	}
}

// Logout handles GET /logout.
func Logout(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := d.Cookies.Token(r); token != "" {
			if err := d.Sessions.Delete(token); err != nil {
				slog.Error("deleting session", slog.String("error", err.Error()))
			}
		}
		d.Cookies.Clear(w)

		flash.Add(w, r, flash.Info, "logged out")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func serverError(w http.ResponseWriter, op string, err error) {
	slog.Error(op, slog.String("error", err.Error()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
