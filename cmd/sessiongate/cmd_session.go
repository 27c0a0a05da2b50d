package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/deeptutor/sessiongate/form"
)

func cmdLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	demo := fs.Bool("demo", false, "use the demo credentials")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	g, err := openGate(ctx, "")
	if err != nil {
		return err
	}
	defer g.Close()

	f := g.NewForm()
	if *demo {
		if !f.View().DemoAvailable {
			return errors.New("demo credentials are disabled in the configuration")
		}
		f.UseDemo()
	} else {
		reader := bufio.NewReader(os.Stdin)
		f.SetUsername(valueOrPrompt(reader, *username, "Username: "))
		f.SetPassword(valueOrPrompt(reader, *password, "Password: "))
	}

	fmt.Println("Signing in...")
	outcome := f.Submit(ctx)
	v := f.View()
	if outcome != form.OutcomeSignedIn {
		return errors.New(v.Error)
	}
	fmt.Printf("Signed in. Now at %s\n", g.Router().Path())
	return nil
}

func cmdRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (prompted when empty)")
	email := fs.String("email", "", "email address")
	fullName := fs.String("name", "", "full name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	g, err := openGate(ctx, "")
	if err != nil {
		return err
	}
	defer g.Close()

	reader := bufio.NewReader(os.Stdin)
	f := g.NewForm()
	f.SetMode(form.ModeRegister)
	f.SetFields(form.Fields{
		Username: valueOrPrompt(reader, *username, "Username: "),
		Password: valueOrPrompt(reader, *password, "Password: "),
		Email:    *email,
		FullName: *fullName,
	})

	if f.Submit(ctx) != form.OutcomeRegistered {
		return errors.New(f.View().Error)
	}
	fmt.Println(f.View().Success)
	fmt.Printf("Next: sessiongate login -u %s\n", f.View().Fields.Username)
	return nil
}

func cmdLogout() error {
	ctx := context.Background()
	g, err := openGate(ctx, "")
	if err != nil {
		return err
	}
	defer g.Close()

	wasSignedIn := g.Session().IsAuthenticated()
	if err := g.Logout(ctx); err != nil {
		return fmt.Errorf("signed out locally, but the stored token could not be removed: %w", err)
	}
	if !wasSignedIn {
		fmt.Println("No session was stored.")
		return nil
	}
	fmt.Printf("Signed out. Now at %s\n", g.Router().Path())
	return nil
}

func valueOrPrompt(reader *bufio.Reader, value, prompt string) string {
	if value != "" {
		return value
	}
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
