package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fileflow/internal/common"
	"github.com/dustin/go-humanize"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a user name, an email and a password, creates the
// account and signs in with the issued token. The password is wiped before
// returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.auth.Register(ctx, userName, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", sess.UserName)
	return a.Refresh(ctx)
}

// Login prompts for credentials, signs in and loads the catalog.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	sess, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Signed in as %s\n", sess.UserName)
	return a.Refresh(ctx)
}

// Logout forgets the session and the catalog. Preferences are kept.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.forgetCatalog()
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	sess := a.session.Session()
	if !sess.Authenticated {
		fmt.Fprintln(a.out, "Not signed in.")
		return nil
	}

	p := a.palette(ctx)
	fmt.Fprintln(a.out, p.label.Render("User:   ")+sess.UserName)
	if sess.UserEmail != "" {
		fmt.Fprintln(a.out, p.label.Render("Email:  ")+sess.UserEmail)
	}
	if sess.ExpiresAt.IsZero() {
		fmt.Fprintln(a.out, p.label.Render("Expires:")+" never")
	} else {
		fmt.Fprintln(a.out, p.label.Render("Expires:")+" "+humanize.RelTime(sess.ExpiresAt, a.now(), "ago", "from now"))
	}
	return nil
}
